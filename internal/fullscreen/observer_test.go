package fullscreen

import "testing"

func TestObserver_NotifiesOnlyOnChange(t *testing.T) {
	o := NewObserver()
	var calls [][]App
	o.Subscribe(func(apps []App) { calls = append(calls, apps) })

	apps := []App{{Window: 2, Display: "DP-2"}, {Window: 1, Display: "DP-1"}}
	if !o.Set(apps) {
		t.Fatalf("expected first set to change")
	}
	// Same set in a different order.
	if o.Set([]App{apps[1], apps[0]}) {
		t.Fatalf("expected reordered set to be unchanged")
	}
	if !o.Set(nil) {
		t.Fatalf("expected clearing to change")
	}
	if o.Set([]App{}) {
		t.Fatalf("expected empty set to equal cleared set")
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(calls))
	}
	if len(calls[0]) != 2 || len(calls[1]) != 0 {
		t.Fatalf("unexpected notifications %+v", calls)
	}
}

func TestObserver_OnDisplayAndUnsubscribe(t *testing.T) {
	o := NewObserver()
	count := 0
	unsubscribe := o.Subscribe(func([]App) { count++ })

	o.Set([]App{{Window: 7, Display: "HDMI-1"}})
	if !o.OnDisplay("HDMI-1") || o.OnDisplay("DP-1") {
		t.Fatalf("unexpected OnDisplay results")
	}

	unsubscribe()
	o.Set(nil)
	if count != 1 {
		t.Fatalf("expected 1 notification before unsubscribe, got %d", count)
	}
	if len(o.Apps()) != 0 {
		t.Fatalf("expected empty app list")
	}
}
