// Package logging builds the logrus.Logger each role's process wraps with
// dlog.WrapLogrus at startup.
package logging

import "github.com/sirupsen/logrus"

// New returns a text-formatted logrus.Logger at info level, the baseline
// both the master and secondary processes log through.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}
