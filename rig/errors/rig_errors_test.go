package errors

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorMessages(t *testing.T) {
	Convey("descriptor errors name both times", t, func() {
		err := DescriptorError{Start: 2000, End: 1000}
		So(err.Error(), ShouldContainSubstring, "2000")
		So(err.Error(), ShouldContainSubstring, "1000")
	})

	Convey("version errors report both sides of the mismatch", t, func() {
		err := VersionError{Got: "2.0.0", Want: "~1.0.0"}
		So(err.Error(), ShouldContainSubstring, "2.0.0")
		So(err.Error(), ShouldContainSubstring, "~1.0.0")

		Convey("a silent peer reads as unknown", func() {
			err := VersionError{Want: "~1.0.0"}
			So(err.Error(), ShouldContainSubstring, "UNKOWN")
		})
	})
}
