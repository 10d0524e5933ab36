package analyses

import (
	"fmt"

	"hookstat/src/classify"
	"hookstat/src/contracts"
	"hookstat/src/dispatch"
	"hookstat/src/report"
)

// AccessUndefArrayElemName is the name of the undefined array element analysis.
const AccessUndefArrayElemName = "AccessUndefArrayElem"

// UninitArrayElem is the key category of undefined array element loads.
const UninitArrayElem = "uninit-array-elem"

// AccessUndefArrayElem counts loads of array elements that were never set or
// were deleted. Such loads are much slower than loads of defined elements on
// optimizing engines.
func AccessUndefArrayElem() dispatch.Analysis {
	site := classify.SiteKey(AccessUndefArrayElemName, UninitArrayElem)

	reg := classify.NewRegistry().
		On(contracts.KindGetField, func(ev contracts.Event) (contracts.Key, bool, error) {
			if ev.Field == nil {
				return contracts.Key{}, false, ErrMissingPayload
			}
			if !readsUninitialized(ev.Field) {
				return contracts.Key{}, false, nil
			}
			return site(ev)
		})

	return dispatch.Analysis{
		Name:        AccessUndefArrayElemName,
		Classifiers: reg,
		Report: report.Config{
			Mode: report.ModeRanked,
			Message: func(int64, string) string {
				return "Access of undefined array element"
			},
			Headline: func(s report.Summary) string {
				return fmt.Sprintf("Number of loading undeclared or deleted array elements spotted: %d", s.Reported+s.Truncated)
			},
		},
	}
}

func readsUninitialized(f *contracts.FieldAccess) bool {
	if !f.Base.IsArray() || !f.Offset.IsNormalNumber() {
		return false
	}
	return !f.Base.HasOwn(f.Offset.PropertyKey())
}
