package fuse

import (
	"fmt"
	"os"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// MountConfig carries the options MountManager needs to bring up the
// go-fuse/v2 server, grounded on the teacher's MountConfig/MountOptions
// split but trimmed to what pathbridge actually varies.
type MountConfig struct {
	MountPoint string
	FSName     string
	Debug      bool
	// AllowOther mirrors FUSE's allow_other; the kernel only honors it
	// for a non-root mounting process when user_allow_other is set in
	// /etc/fuse.conf, so pathbridge only requests it when running as
	// root (spec 4.3's mount-option contract).
	AllowOther bool
}

// MountManager owns the lifecycle of a single FUSE mount, grounded on
// the teacher's MountManager.
type MountManager struct {
	core   *Core
	config MountConfig
	server *fuse.Server
}

// NewMountManager builds a MountManager for core, to be mounted at
// config.MountPoint.
func NewMountManager(core *Core, config MountConfig) *MountManager {
	return &MountManager{core: core, config: config}
}

// Mount brings up the FUSE server and blocks until it is ready to serve.
func (m *MountManager) Mount() error {
	if m.server != nil {
		return fmt.Errorf("pathbridge: already mounted at %s", m.config.MountPoint)
	}
	if err := m.validateMountPoint(); err != nil {
		return err
	}

	allowOther := m.config.AllowOther && os.Geteuid() == 0

	attrTimeout := 1 * time.Second
	entryTimeout := 1 * time.Second
	negTimeout := 2 * time.Second

	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:      m.config.FSName,
			Name:        "pathbridge",
			Options:     []string{"default_permissions"},
			AllowOther:  allowOther,
			Debug:       m.config.Debug,
			DirectMount: true,
		},
		AttrTimeout:     &attrTimeout,
		EntryTimeout:    &entryTimeout,
		NegativeTimeout: &negTimeout,
		NullPermissions: false,
		UID:             m.core.uid,
		GID:             m.core.gid,
	}

	server, err := fs.Mount(m.config.MountPoint, newRoot(m.core), opts)
	if err != nil {
		return fmt.Errorf("pathbridge: mount %s: %w", m.config.MountPoint, err)
	}
	m.server = server
	return nil
}

// Wait blocks until the mount is unmounted, either by Unmount or
// externally (fusermount -u).
func (m *MountManager) Wait() {
	if m.server != nil {
		m.server.Wait()
	}
}

// Unmount tears down the FUSE mount.
func (m *MountManager) Unmount() error {
	if m.server == nil {
		return fmt.Errorf("pathbridge: not mounted")
	}
	if err := m.server.Unmount(); err != nil {
		return fmt.Errorf("pathbridge: unmount %s: %w", m.config.MountPoint, err)
	}
	m.server = nil
	return nil
}

func (m *MountManager) validateMountPoint() error {
	if m.config.MountPoint == "" {
		return fmt.Errorf("pathbridge: mount point cannot be empty")
	}
	info, err := os.Stat(m.config.MountPoint)
	if err != nil {
		return fmt.Errorf("pathbridge: mount point %s: %w", m.config.MountPoint, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("pathbridge: mount point %s is not a directory", m.config.MountPoint)
	}
	return nil
}
