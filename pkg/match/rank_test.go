package match_test

import (
	"testing"

	"github.com/hazyhaar/recruitmatch/pkg/match"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(id string, score int, mt match.MatchType, c match.Candidate) match.ScoredMatch {
	c.ID = match.Text(id)
	return match.ScoredMatch{Candidate: c, ConfidenceScore: score, MatchType: mt}
}

func ids(ms []match.ScoredMatch) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m.Candidate.ID)
	}
	return out
}

func TestRank(t *testing.T) {
	Convey("Given two candidates with equal scores", t, func() {
		in := []match.ScoredMatch{
			scored("phone", 80, match.PhoneOnly, match.Candidate{}),
			scored("school", 80, match.NameSchool, match.Candidate{}),
		}

		Convey("Then name_school sorts before phone_only", func() {
			So(ids(match.Rank(in)), ShouldResemble, []string{"school", "phone"})
		})

		Convey("And the input slice is left alone", func() {
			match.Rank(in)
			So(ids(in), ShouldResemble, []string{"phone", "school"})
		})
	})

	Convey("Given mixed scores, match types and profiles", t, func() {
		full := match.Candidate{FirstName: "A", LastName: "B", EmailAddress: "e", PhoneNumber: "1", SchoolID: "s", Position: "QB", ClassYear: "2026"}
		sparse := match.Candidate{FirstName: "A"}
		in := []match.ScoredMatch{
			scored("low", 40, match.EmailMatch, full),
			scored("sparse", 90, match.NamePhone, sparse),
			scored("mystery", 90, "mystery", full),
			scored("full", 90, match.NamePhone, full),
			scored("top", 99, match.PhoneOnly, sparse),
		}

		out := match.Rank(in)

		Convey("Then score wins, then match type, then completeness", func() {
			So(ids(out), ShouldResemble, []string{"top", "full", "sparse", "mystery", "low"})
		})

		Convey("And scores never increase down the list", func() {
			for i := 1; i < len(out); i++ {
				So(out[i].ConfidenceScore, ShouldBeLessThanOrEqualTo, out[i-1].ConfidenceScore)
			}
		})
	})

	Convey("Given fully tied candidates", t, func() {
		var in []match.ScoredMatch
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			in = append(in, scored(id, 70, match.NamePartial, match.Candidate{FirstName: "X"}))
		}

		Convey("Then the input order is kept", func() {
			So(ids(match.Rank(in)), ShouldResemble, []string{"a", "b", "c", "d", "e"})
		})
	})

	Convey("Given nothing to rank", t, func() {
		So(match.Rank(nil), ShouldBeEmpty)
	})
}

func TestCompleteness(t *testing.T) {
	Convey("Completeness covers the seven ranking fields", t, func() {
		So(match.Completeness(match.Candidate{}), ShouldEqual, 0)
		c := match.Candidate{FirstName: "A", LastName: "B", Position: "WR", ClassYear: " "}
		So(match.Completeness(c), ShouldAlmostEqual, 3.0/7.0)
	})
}
