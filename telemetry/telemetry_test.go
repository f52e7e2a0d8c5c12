package telemetry

import (
	"testing"

	"go.viam.com/test"
)

func TestEnabled(t *testing.T) {
	test.That(t, Enabled(nil), test.ShouldBeFalse)
	test.That(t, Enabled([]string{"module"}), test.ShouldBeFalse)
	test.That(t, Enabled([]string{"module", "/tmp/socket"}), test.ShouldBeFalse)
	test.That(t, Enabled([]string{"module", "/tmp/socket", Flag}), test.ShouldBeTrue)
	// the binary name is never a flag
	test.That(t, Enabled([]string{Flag}), test.ShouldBeFalse)
}

func TestSetupTelemetry(t *testing.T) {
	exporter, err := SetupTelemetry()
	test.That(t, err, test.ShouldBeNil)
	exporter.Stop()
}
