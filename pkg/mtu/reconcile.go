package mtu

import (
	"fmt"
	"log"
	"net"
)

// Result counts what one reconciliation did for a set of destinations.
type Result struct {
	Changed   []Change
	Unchanged int
	Errors    int
}

// Change is one applied mutation, old and new override (0 = none).
type Change struct {
	Dst    *net.IPNet
	OldMTU int
	NewMTU int
}

// Reconcile drives every destination routed through a peer toward target.
// ok=false clears any existing override. Each destination is a single
// atomic route-attribute change; failures are logged and counted, never
// propagated, so the rest of the pass proceeds. Running it twice without an
// intervening route-table change performs the updates once and is a no-op
// the second time.
func Reconcile(rt RouteTable, device string, dests []net.IPNet, target int, ok bool) Result {
	want := 0
	if ok {
		want = target
	}
	var res Result
	for i := range dests {
		dst := &dests[i]
		if err := reconcileOne(rt, device, dst, want, &res); err != nil {
			log.Printf("route %s dev %s: %v", dst, device, err)
			res.Errors++
		}
	}
	return res
}

func reconcileOne(rt RouteTable, device string, dst *net.IPNet, want int, res *Result) error {
	routes, err := rt.List(device, dst)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(routes) == 0 {
		return fmt.Errorf("no route present")
	}
	current := routes[0].MTU
	if current == want {
		res.Unchanged++
		return nil
	}
	if err := rt.SetMTU(device, dst, want); err != nil {
		return fmt.Errorf("set mtu %d: %w", want, err)
	}
	res.Changed = append(res.Changed, Change{Dst: dst, OldMTU: current, NewMTU: want})
	return nil
}
