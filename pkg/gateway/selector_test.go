package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	entry, exit, all []Gateway
}

func (f *fakeDirectory) EntryGateways(context.Context) ([]Gateway, error) { return f.entry, nil }
func (f *fakeDirectory) ExitGateways(context.Context) ([]Gateway, error)  { return f.exit, nil }
func (f *fakeDirectory) AllGateways(context.Context) ([]Gateway, error)   { return f.all, nil }

func TestSelectNeverReturnsSameIdentity(t *testing.T) {
	gw := Gateway{Identity: "only-one", IprAddress: "ipr.addr", TwoLetterISOCountry: "us"}
	dir := &fakeDirectory{entry: []Gateway{gw}, exit: []Gateway{gw}}
	sel := NewSelector(dir)

	_, err := sel.Select(context.Background(), ModeMixnet, EntryPoint{Kind: EntryRandom}, ExitPoint{Kind: ExitRandom})
	require.Error(t, err)
}

func TestSelectDisjointEntryExit(t *testing.T) {
	exitGw := Gateway{Identity: "exit-1", IprAddress: "ipr.addr", TwoLetterISOCountry: "us"}
	entryGw := Gateway{Identity: "entry-1", TwoLetterISOCountry: "de"}
	dir := &fakeDirectory{entry: []Gateway{exitGw, entryGw}, exit: []Gateway{exitGw}}
	sel := NewSelector(dir)

	got, err := sel.Select(context.Background(), ModeMixnet, EntryPoint{Kind: EntryRandom}, ExitPoint{Kind: ExitRandom})
	require.NoError(t, err)
	assert.NotEqual(t, got.Entry.Identity, got.Exit.Identity)
	assert.Equal(t, "entry-1", got.Entry.Identity)
	assert.Equal(t, "exit-1", got.Exit.Identity)
}

func TestSelectSameCountryRemapsError(t *testing.T) {
	exitGw := Gateway{Identity: "exit-1", IprAddress: "ipr.addr", TwoLetterISOCountry: "xx"}
	dir := &fakeDirectory{
		entry: []Gateway{exitGw}, // the only "xx" entry candidate is the exit itself
		exit:  []Gateway{exitGw},
	}
	sel := NewSelector(dir)

	_, err := sel.Select(context.Background(), ModeMixnet,
		EntryPoint{Kind: EntryLocation, CountryISO: "xx"},
		ExitPoint{Kind: ExitRandom})

	var remapped *ErrSameEntryAndExitGatewayFromCountry
	require.ErrorAs(t, err, &remapped)
	assert.Equal(t, "xx", remapped.RequestedLocation)
}

func TestSelectWireguardModeUsesSharedSet(t *testing.T) {
	a := Gateway{Identity: "a", AuthenticatorAddress: "auth.a", TwoLetterISOCountry: "us"}
	b := Gateway{Identity: "b", AuthenticatorAddress: "auth.b", TwoLetterISOCountry: "de"}
	dir := &fakeDirectory{all: []Gateway{a, b}}
	sel := NewSelector(dir)

	got, err := sel.Select(context.Background(), ModeWireguard,
		EntryPoint{Kind: EntryGateway, Identity: "a"},
		ExitPoint{Kind: ExitGateway, Identity: "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", got.Entry.Identity)
	assert.Equal(t, "b", got.Exit.Identity)
}

func TestSelectMixModeExcludesGatewayWithoutIprAddress(t *testing.T) {
	noIpr := Gateway{Identity: "no-ipr", TwoLetterISOCountry: "us"}
	withIpr := Gateway{Identity: "has-ipr", IprAddress: "ipr.addr", TwoLetterISOCountry: "us"}
	dir := &fakeDirectory{entry: []Gateway{noIpr, withIpr}, exit: []Gateway{noIpr, withIpr}}
	sel := NewSelector(dir)

	got, err := sel.Select(context.Background(), ModeMixnet,
		EntryPoint{Kind: EntryGateway, Identity: "no-ipr"}, ExitPoint{Kind: ExitRandom})
	require.NoError(t, err)
	assert.Equal(t, "has-ipr", got.Exit.Identity)
}

func TestSelectMixModeRejectsExplicitExitWithoutIprAddress(t *testing.T) {
	noIpr := Gateway{Identity: "no-ipr", TwoLetterISOCountry: "us"}
	dir := &fakeDirectory{entry: []Gateway{noIpr}, exit: []Gateway{noIpr}}
	sel := NewSelector(dir)

	_, err := sel.Select(context.Background(), ModeMixnet,
		EntryPoint{Kind: EntryRandom}, ExitPoint{Kind: ExitGateway, Identity: "no-ipr"})
	require.Error(t, err)
}

func TestSelectMinPerformanceFilter(t *testing.T) {
	good := Gateway{Identity: "good", IprAddress: "ipr.addr", Performance: 0.9}
	alsoGood := Gateway{Identity: "also-good", Performance: 0.8}
	bad := Gateway{Identity: "bad", IprAddress: "ipr.addr2", Performance: 0.1}
	dir := &fakeDirectory{entry: []Gateway{good, alsoGood, bad}, exit: []Gateway{good, bad}}
	sel := NewSelector(dir)
	sel.MinPerformance = 0.5

	got, err := sel.Select(context.Background(), ModeMixnet,
		EntryPoint{Kind: EntryRandom}, ExitPoint{Kind: ExitGateway, Identity: "good"})
	require.NoError(t, err)
	assert.Equal(t, "good", got.Exit.Identity)
	assert.Equal(t, "also-good", got.Entry.Identity)
}
