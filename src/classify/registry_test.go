package classify

import (
	"testing"

	"hookstat/src/contracts"
)

func TestRegistryOn(t *testing.T) {
	hit := func(ev contracts.Event) (contracts.Key, bool, error) {
		return contracts.Key{Analysis: "a", ID: ev.IID}, true, nil
	}
	miss := func(ev contracts.Event) (contracts.Key, bool, error) {
		return contracts.Key{}, false, nil
	}

	r := NewRegistry().
		On(contracts.KindPutField, hit).
		On(contracts.KindPutField, miss).
		On(contracts.KindInvokeFunPre, hit)

	if got := len(r.For(contracts.KindPutField)); got != 2 {
		t.Errorf("For(putField) returned %d classifiers, want 2", got)
	}
	if got := len(r.For(contracts.KindGetField)); got != 0 {
		t.Errorf("For(getField) returned %d classifiers, want 0", got)
	}

	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != contracts.KindInvokeFunPre || kinds[1] != contracts.KindPutField {
		t.Errorf("Kinds() = %v, want [invokeFunPre putField]", kinds)
	}
}

func TestRegistryAny(t *testing.T) {
	r := NewRegistry().Any(SiteKey("cov", ""))

	for _, k := range contracts.HookKinds() {
		if len(r.For(k)) != 1 {
			t.Errorf("For(%s) returned %d classifiers, want 1", k, len(r.For(k)))
		}
	}
	if len(r.For(contracts.KindEndExecution)) != 0 {
		t.Error("Any() must not register for endExecution")
	}
}

func TestSiteKey(t *testing.T) {
	c := SiteKey("cov", "line")
	key, ok, err := c(contracts.Event{Kind: contracts.KindRead, IID: 12})
	if err != nil || !ok {
		t.Fatalf("SiteKey() = %v, %v, %v", key, ok, err)
	}
	want := contracts.Key{Analysis: "cov", Category: "line", ID: 12}
	if key != want {
		t.Errorf("SiteKey() key = %v, want %v", key, want)
	}
}
