package stage

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the default logger a Worker uses when none is
// supplied explicitly: a logrus entry tagged with the stage's name, so
// that output from a multi-stage pipeline stays attributable to the
// stage that produced it. Mirrors how a production service in this
// ecosystem builds one *logrus.Entry per component and threads it
// through rather than calling the package-level logger from everywhere.
func NewLogger(name string, out io.Writer) *logrus.Entry {
	l := logrus.New()
	if out != nil {
		l.SetOutput(out)
	}
	return l.WithField("stage", name)
}
