package interpose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateRewritesExactPrefixMatch(t *testing.T) {
	tr := NewTranslator(`C:\Users\me`, "/ccbox/workspace")

	out, ok := tr.Translate(`C:\Users\me\file.json`)
	assert.True(t, ok)
	assert.Equal(t, "/ccbox/workspace/file.json", out)
}

func TestTranslateIsCaseInsensitiveOnFirstCharOnly(t *testing.T) {
	tr := NewTranslator(`C:\Users\me`, "/ccbox/workspace")

	out, ok := tr.Translate(`c:\Users\me\file.json`)
	assert.True(t, ok)
	assert.Equal(t, "/ccbox/workspace/file.json", out)
}

func TestTranslateRejectsCaseMismatchPastFirstChar(t *testing.T) {
	tr := NewTranslator(`C:\Users\me`, "/ccbox/workspace")

	_, ok := tr.Translate(`C:\users\me\file.json`)
	assert.False(t, ok)
}

func TestTranslateRejectsPartialSegmentMatch(t *testing.T) {
	tr := NewTranslator(`C:\Users\me`, "/ccbox/workspace")

	out, ok := tr.Translate(`C:\Users\me2\file.json`)
	assert.False(t, ok)
	assert.Equal(t, `C:\Users\me2\file.json`, out)
}

func TestTranslateMatchesExactPrefixWithNoRemainder(t *testing.T) {
	tr := NewTranslator(`C:\Users\me`, "/ccbox/workspace")

	out, ok := tr.Translate(`C:\Users\me`)
	assert.True(t, ok)
	assert.Equal(t, "/ccbox/workspace", out)
}

func TestTranslateLeavesUnrelatedPathUnchanged(t *testing.T) {
	tr := NewTranslator(`C:\Users\me`, "/ccbox/workspace")

	out, ok := tr.Translate(`/etc/hosts`)
	assert.False(t, ok)
	assert.Equal(t, "/etc/hosts", out)
}

func TestTranslateIsNoopWhenUnconfigured(t *testing.T) {
	tr := NewTranslator("", "/ccbox/workspace")
	assert.False(t, tr.Ready())

	out, ok := tr.Translate(`C:\Users\me\file.json`)
	assert.False(t, ok)
	assert.Equal(t, `C:\Users\me\file.json`, out)
}

func TestNewTranslatorStripsTrailingSeparators(t *testing.T) {
	tr := NewTranslator(`C:\Users\me\`, "/ccbox/workspace/")

	out, ok := tr.Translate(`C:\Users\me\file.json`)
	assert.True(t, ok)
	assert.Equal(t, "/ccbox/workspace/file.json", out)
}
