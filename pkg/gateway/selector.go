package gateway

import (
	"context"
	"math/rand"
	"sort"
)

// Selector queries the directory, picks entry/exit gateways under policy
// constraints, and excludes overlap between the two sets.
type Selector struct {
	Directory      DirectoryClient
	MinPerformance float64 // [EXPANSION] --min-mixnode-performance, 0 disables filtering
}

// NewSelector builds a Selector bound to directory.
func NewSelector(directory DirectoryClient) *Selector {
	return &Selector{Directory: directory}
}

// Select runs the full entry/exit resolution algorithm.
func (s *Selector) Select(ctx context.Context, mode Mode, entry EntryPoint, exit ExitPoint) (SelectedGateways, error) {
	entrySet, exitSet, err := s.fetchCandidates(ctx, mode)
	if err != nil {
		return SelectedGateways{}, err
	}
	entrySet = s.filterByPerformance(entrySet)
	exitSet = s.filterByPerformance(exitSet)
	if mode == ModeMixnet {
		exitSet = filterByIprCapability(exitSet)
	}

	exitGw, err := resolveExit(exitSet, exit)
	if err != nil {
		return SelectedGateways{}, err
	}

	remaining := removeByIdentity(entrySet, exitGw.Identity)

	entryGw, err := resolveEntry(remaining, entry)
	if err != nil {
		var notFound *ErrNoMatchingEntryGatewayForLocation
		if isNoMatchingEntryForLocation(err, &notFound) && notFound.RequestedLocation == exitGw.TwoLetterISOCountry {
			return SelectedGateways{}, &ErrSameEntryAndExitGatewayFromCountry{RequestedLocation: notFound.RequestedLocation}
		}
		return SelectedGateways{}, err
	}

	return SelectedGateways{Entry: entryGw, Exit: exitGw}, nil
}

func isNoMatchingEntryForLocation(err error, out **ErrNoMatchingEntryGatewayForLocation) bool {
	e, ok := err.(*ErrNoMatchingEntryGatewayForLocation)
	if !ok {
		return false
	}
	*out = e
	return true
}

func (s *Selector) fetchCandidates(ctx context.Context, mode Mode) (entrySet, exitSet []Gateway, err error) {
	if mode == ModeMixnet {
		entrySet, err = s.Directory.EntryGateways(ctx)
		if err != nil {
			return nil, nil, &ErrFailedToLookupGateways{Cause: err}
		}
		exitSet, err = s.Directory.ExitGateways(ctx)
		if err != nil {
			return nil, nil, &ErrFailedToLookupGateways{Cause: err}
		}
		return entrySet, exitSet, nil
	}

	all, err := s.Directory.AllGateways(ctx)
	if err != nil {
		return nil, nil, &ErrFailedToLookupGateways{Cause: err}
	}
	return all, all, nil
}

func (s *Selector) filterByPerformance(set []Gateway) []Gateway {
	if s.MinPerformance <= 0 {
		return set
	}
	out := make([]Gateway, 0, len(set))
	for _, g := range set {
		if g.Performance >= s.MinPerformance {
			out = append(out, g)
		}
	}
	return out
}

// filterByIprCapability narrows a mix-mode exit candidate set to gateways
// that can actually serve as an IP packet router; a gateway with no
// ipr_address would otherwise be selected and then handed to the IPR
// connect handshake as an empty recipient.
func filterByIprCapability(set []Gateway) []Gateway {
	out := make([]Gateway, 0, len(set))
	for _, g := range set {
		if g.HasIprAddress() {
			out = append(out, g)
		}
	}
	return out
}

func removeByIdentity(set []Gateway, identity string) []Gateway {
	out := make([]Gateway, 0, len(set))
	for _, g := range set {
		if g.Identity != identity {
			out = append(out, g)
		}
	}
	return out
}

func resolveExit(set []Gateway, point ExitPoint) (Gateway, error) {
	switch point.Kind {
	case ExitRandom:
		return pickRandom(set)
	case ExitAddress:
		for _, g := range set {
			if g.IprAddress == point.Address {
				return g, nil
			}
		}
		return Gateway{}, &ErrFailedToSelectExitGateway{Reason: "no gateway serves address " + point.Address}
	case ExitGateway:
		for _, g := range set {
			if g.Identity == point.Identity {
				return g, nil
			}
		}
		return Gateway{}, &ErrFailedToSelectExitGateway{Reason: "no gateway with identity " + point.Identity}
	case ExitLocation:
		matches := byCountry(set, point.CountryISO)
		if len(matches) == 0 {
			return Gateway{}, &ErrFailedToSelectExitGateway{Reason: "no gateway in country " + point.CountryISO}
		}
		return pickRandom(matches)
	default:
		return Gateway{}, &ErrFailedToSelectExitGateway{Reason: "unknown exit point kind"}
	}
}

func resolveEntry(set []Gateway, point EntryPoint) (Gateway, error) {
	switch point.Kind {
	case EntryRandom:
		if len(set) == 0 {
			return Gateway{}, &ErrFailedToSelectEntryGateway{Reason: "candidate set is empty"}
		}
		return pickRandom(set)
	case EntryRandomLowLatency:
		return pickLowLatency(set)
	case EntryGateway:
		for _, g := range set {
			if g.Identity == point.Identity {
				return g, nil
			}
		}
		return Gateway{}, &ErrFailedToSelectEntryGateway{Reason: "no gateway with identity " + point.Identity}
	case EntryLocation:
		matches := byCountry(set, point.CountryISO)
		if len(matches) == 0 {
			return Gateway{}, &ErrNoMatchingEntryGatewayForLocation{RequestedLocation: point.CountryISO}
		}
		return pickRandom(matches)
	default:
		return Gateway{}, &ErrFailedToSelectEntryGateway{Reason: "unknown entry point kind"}
	}
}

func byCountry(set []Gateway, iso string) []Gateway {
	out := make([]Gateway, 0, len(set))
	for _, g := range set {
		if g.TwoLetterISOCountry == iso {
			out = append(out, g)
		}
	}
	return out
}

func pickRandom(set []Gateway) (Gateway, error) {
	if len(set) == 0 {
		return Gateway{}, &ErrFailedToSelectExitGateway{Reason: "candidate set is empty"}
	}
	return set[rand.Intn(len(set))], nil
}

// pickLowLatency narrows to the top quartile by reported performance (a
// proxy for latency in the directory's advertised metadata) before picking
// randomly among them, rather than always returning the single best
// gateway — that would concentrate load on one node.
func pickLowLatency(set []Gateway) (Gateway, error) {
	if len(set) == 0 {
		return Gateway{}, &ErrFailedToSelectEntryGateway{Reason: "candidate set is empty"}
	}
	sorted := append([]Gateway(nil), set...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Performance > sorted[j].Performance })
	top := len(sorted)/4 + 1
	return pickRandom(sorted[:top])
}
