package gateway

import "fmt"

// ErrFailedToLookupGateways wraps a directory-client failure.
type ErrFailedToLookupGateways struct{ Cause error }

func (e *ErrFailedToLookupGateways) Error() string { return fmt.Sprintf("failed to look up gateways: %v", e.Cause) }
func (e *ErrFailedToLookupGateways) Unwrap() error  { return e.Cause }

// ErrFailedToSelectExitGateway covers every exit-resolution failure that
// isn't the country/disjointness remap below.
type ErrFailedToSelectExitGateway struct{ Reason string }

func (e *ErrFailedToSelectExitGateway) Error() string {
	return fmt.Sprintf("failed to select exit gateway: %s", e.Reason)
}

// ErrNoMatchingEntryGatewayForLocation is the pre-remap error: no entry
// candidate matches the requested ISO country.
type ErrNoMatchingEntryGatewayForLocation struct{ RequestedLocation string }

func (e *ErrNoMatchingEntryGatewayForLocation) Error() string {
	return fmt.Sprintf("no matching entry gateway for location %q", e.RequestedLocation)
}

// ErrSameEntryAndExitGatewayFromCountry is the remapped diagnostic: the
// caller asked for an entry location that matches the already-resolved
// exit's country, and removing the exit left nothing to choose from there.
type ErrSameEntryAndExitGatewayFromCountry struct{ RequestedLocation string }

func (e *ErrSameEntryAndExitGatewayFromCountry) Error() string {
	return fmt.Sprintf("entry and exit gateway would both be from country %q", e.RequestedLocation)
}

// ErrFailedToSelectEntryGateway covers every other entry-resolution failure.
type ErrFailedToSelectEntryGateway struct{ Reason string }

func (e *ErrFailedToSelectEntryGateway) Error() string {
	return fmt.Sprintf("failed to select entry gateway: %s", e.Reason)
}
