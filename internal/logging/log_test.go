package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"go.viam.com/test"
)

func TestNew(t *testing.T) {

	logger, err := New(Options{Level: "debug", NoColors: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logrus.DebugLevel)

	_, err = New(Options{Level: "loud"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSessionFields(t *testing.T) {

	logger, err := New(Options{NoColors: true})
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	sess := NewSession(logger)
	id, ok := sess.Data[SessionKey].(string)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(id), test.ShouldEqual, 36)

	Component(sess, "pipeline").Info("started")
	test.That(t, buf.String(), test.ShouldContainSubstring, "pipeline")
	test.That(t, buf.String(), test.ShouldContainSubstring, id)
}
