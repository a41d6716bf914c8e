package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestPriceOf(t *testing.T) {
    cases := []struct {
        name string
        sel  Selection
        want int64
    }{
        {"tier1", Selection{Tier: "tier1"}, 375},
        {"tier2", Selection{Tier: "tier2"}, 650},
        {"tier3", Selection{Tier: "tier3"}, 850},
        {"cultural pass", Selection{PassType: "cultural"}, 250},
        {"technical pass", Selection{PassType: "technical"}, 300},
        {"proshow standard", Selection{PassType: "proshow", PassTier: "standard"}, 500},
        {"proshow vip", Selection{PassType: "proshow", PassTier: "vip"}, 1000},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got, err := PriceOf(tc.sel)
            require.NoError(t, err)
            assert.Equal(t, tc.want, got)
        })
    }
}

func TestPriceOfRejectsUnknownSelections(t *testing.T) {
    for _, sel := range []Selection{
        {},
        {Tier: "tier9"},
        {Tier: "tier1", PassType: "cultural"},
        {PassType: "proshow"},
        {PassType: "proshow", PassTier: "gold"},
        {PassType: "cultural", PassTier: "vip"},
        {PassType: "sports"},
    } {
        _, err := PriceOf(sel)
        assert.ErrorIs(t, err, ErrUnknownSelection, "%+v", sel)
    }
}

func TestThreeTierGroupTotal(t *testing.T) {
    var total int64
    for _, tier := range []string{"tier1", "tier2", "tier3"} {
        p, err := PriceOf(Selection{Tier: tier})
        require.NoError(t, err)
        total += p
    }
    assert.Equal(t, int64(1875), total)
}

func TestPriceListIsDeterministic(t *testing.T) {
    first := PriceList()
    require.Len(t, first, 7)
    assert.Equal(t, "tier", first[0].Kind)
    assert.Equal(t, "tier1", first[0].Name)
    for i := 0; i < 5; i++ {
        assert.Equal(t, first, PriceList())
    }
}

func TestStatusTransitions(t *testing.T) {
    assert.False(t, StatusPending.Terminal())
    assert.True(t, StatusApproved.Terminal())
    assert.True(t, StatusRejected.Terminal())
    assert.False(t, Status("archived").Valid())
    assert.True(t, KindEvent.Valid())
    assert.False(t, Kind("merch").Valid())
}
