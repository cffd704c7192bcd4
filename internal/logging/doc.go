// Package logging wires pathbridge's tracing level (spec section 6: "0
// off, 1 transform-only, 2 verbose") onto a github.com/sirupsen/logrus
// logger writing in append mode to the configured well-known log path,
// in the style of lazydocker's pkg/log.
package logging
