package matcher_test

import (
	"math"
	"testing"

	"github.com/okian/visage/internal/domain/matcher"
	"github.com/okian/visage/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistanceAndConfidence(t *testing.T) {
	Convey("Given two descriptors", t, func() {
		a := model.Descriptor{0.1, -0.4, 0.25, 0.9}

		Convey("When comparing a descriptor with itself", func() {
			d := matcher.Distance(a, a)

			Convey("Then distance is zero and confidence is one", func() {
				So(d, ShouldEqual, 0.0)
				So(matcher.Confidence(d), ShouldEqual, 1.0)
			})
		})

		Convey("When comparing known points", func() {
			d := matcher.Distance(model.Descriptor{0, 0}, model.Descriptor{0.3, 0.4})
			So(d, ShouldAlmostEqual, 0.5, 1e-12)
			So(matcher.Confidence(d), ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("When the distance exceeds one", func() {
			So(matcher.Confidence(1.7), ShouldEqual, 0.0)
			So(matcher.Confidence(math.Inf(1)), ShouldEqual, 0.0)
		})

		Convey("When the distance is negative", func() {
			So(matcher.Confidence(-0.1), ShouldAlmostEqual, 1.1, 1e-12)
		})

		Convey("When dimensions differ", func() {
			So(math.IsInf(matcher.Distance(a, model.Descriptor{1}), 1), ShouldBeTrue)
		})
	})
}

func TestNearest(t *testing.T) {
	Convey("Given a set of enrolled people", t, func() {
		people := []model.Person{
			{Name: "Alice", Descriptor: model.Descriptor{0, 0}},
			{Name: "Bob", Descriptor: model.Descriptor{1, 0}},
			{Name: "Carol", Descriptor: model.Descriptor{0, 1}},
		}

		Convey("When the query sits on a record", func() {
			m := matcher.Nearest(people, model.Descriptor{1, 0})

			Convey("Then that record wins with zero distance", func() {
				So(m.Person, ShouldNotBeNil)
				So(m.Person.Name, ShouldEqual, "Bob")
				So(m.Distance, ShouldEqual, 0.0)
				So(m.Confidence(), ShouldEqual, 1.0)
			})
		})

		Convey("When two records are equidistant", func() {
			m := matcher.Nearest(people[1:], model.Descriptor{0.5, 0.5})

			Convey("Then the first inserted one wins", func() {
				So(m.Person.Name, ShouldEqual, "Bob")
			})
		})

		Convey("When the store is empty", func() {
			m := matcher.Nearest(nil, model.Descriptor{0.5, 0.5})

			Convey("Then there is no person and distance is +Inf", func() {
				So(m.Person, ShouldBeNil)
				So(math.IsInf(m.Distance, 1), ShouldBeTrue)
				So(m.Confidence(), ShouldEqual, 0.0)
			})
		})

		Convey("When every record has a different dimension", func() {
			m := matcher.Nearest(people, model.Descriptor{1, 2, 3})
			So(m.Person, ShouldBeNil)
		})

		Convey("When the result is returned", func() {
			m := matcher.Nearest(people, model.Descriptor{0, 0.9})

			Convey("Then it points into the given slice", func() {
				So(m.Person, ShouldEqual, &people[2])
			})
		})
	})
}
