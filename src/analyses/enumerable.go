package analyses

import (
	"fmt"

	"hookstat/src/classify"
	"hookstat/src/contracts"
	"hookstat/src/dispatch"
	"hookstat/src/report"
)

// AddEnumerablePropertyName is the name of the Object.prototype pollution analysis.
const AddEnumerablePropertyName = "AddEnumerablePropertyToObject"

// AddEnumerablePropertyToObject flags code that adds enumerable properties to
// Object.prototype, which leaks into every for-in loop of the program.
// Two patterns are counted:
//
//	Object.defineProperty(Object.prototype, name, {enumerable: true})
//	Object.prototype[name] = value
func AddEnumerablePropertyToObject() dispatch.Analysis {
	site := classify.SiteKey(AddEnumerablePropertyName, "")

	reg := classify.NewRegistry().
		On(contracts.KindInvokeFunPre, func(ev contracts.Event) (contracts.Key, bool, error) {
			if ev.Call == nil {
				return contracts.Key{}, false, ErrMissingPayload
			}
			if !definesEnumerableOnPrototype(ev.Call) {
				return contracts.Key{}, false, nil
			}
			return site(ev)
		}).
		On(contracts.KindPutField, func(ev contracts.Event) (contracts.Key, bool, error) {
			if ev.Field == nil {
				return contracts.Key{}, false, ErrMissingPayload
			}
			if !ev.Field.Base.IsRef("Object.prototype") {
				return contracts.Key{}, false, nil
			}
			return site(ev)
		})

	return dispatch.Analysis{
		Name:        AddEnumerablePropertyName,
		Classifiers: reg,
		Report: report.Config{
			Mode: report.ModeRanked,
			Message: func(count int64, location string) string {
				return fmt.Sprintf("Adding an enumerable property to Object.prototype at %s %d time(s).", location, count)
			},
		},
	}
}

func definesEnumerableOnPrototype(c *contracts.Call) bool {
	if c.Func.Name != "defineProperty" || !c.Base.IsRef("Object") {
		return false
	}
	if len(c.Args) != 3 || !c.Args[0].IsRef("Object.prototype") {
		return false
	}
	enumerable, ok := c.Args[2].Prop("enumerable")
	return ok && enumerable.IsTrue()
}
