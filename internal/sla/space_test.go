package sla_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsgates/pcodec/internal/sla"
)

func newTestManager() (*sla.Manager, *sla.Space, *sla.Space) {
	m := sla.NewManager()
	ram := m.AddSpace("ram", 1, 8, false, sla.SpaceProcessor)
	unique := m.AddSpace("unique", 1, 8, false, sla.SpaceUnique)
	m.AddSpace("const", 1, 8, false, sla.SpaceConstant)
	m.AddSpace("join", 1, 8, false, sla.SpaceJoin)
	return m, ram, unique
}

func TestManagerLookup(t *testing.T) {
	m, ram, unique := newTestManager()

	require.Equal(t, ram, m.GetSpaceByName("ram"))
	require.Equal(t, 0, ram.Index())
	require.Equal(t, 1, unique.Index())
	require.Equal(t, ram, m.GetSpace(0))
	require.Nil(t, m.GetSpace(99))
	require.Equal(t, m.GetSpaceByName("const"), m.ConstantSpace())
	require.Equal(t, m.GetSpaceByName("unique"), m.UniqueSpace())
}

func TestAddressOrdering(t *testing.T) {
	_, ram, unique := newTestManager()

	a := sla.Address{Space: ram, Offset: 0x100}
	b := sla.Address{Space: ram, Offset: 0x200}
	c := sla.Address{Space: unique, Offset: 0x10}

	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
	// ram has a lower index than unique, regardless of offset magnitude.
	require.Equal(t, -1, a.Compare(c))
}

func TestOverlapAndContains(t *testing.T) {
	_, ram, _ := newTestManager()

	a := sla.Address{Space: ram, Offset: 0x100}
	b := sla.Address{Space: ram, Offset: 0x104}
	c := sla.Address{Space: ram, Offset: 0x200}

	require.True(t, sla.Overlap(a, 8, b, 4))
	require.False(t, sla.Overlap(a, 4, c, 4))
	require.True(t, sla.Contains(a, 8, b, 4))
	require.False(t, sla.Contains(a, 4, b, 4))
}

func TestOverlaySpaceContainment(t *testing.T) {
	m, ram, _ := newTestManager()
	overlay := m.AddOverlay("ram.overlay", ram)

	a := sla.Address{Space: ram, Offset: 0x10}
	b := sla.Address{Space: overlay, Offset: 0x10}

	require.True(t, sla.Overlap(a, 4, b, 4))
	require.True(t, sla.Contains(a, 4, b, 4))
}

func TestJoinAddressConstruction(t *testing.T) {
	m, ram, _ := newTestManager()

	hi := sla.Address{Space: ram, Offset: 0x1000}
	lo := sla.Address{Space: ram, Offset: 0x1004}

	j1 := m.ConstructJoinAddress(hi, 4, lo, 4)
	j2 := m.ConstructJoinAddress(hi, 4, lo, 4)
	require.Equal(t, j1, j2, "same pair of ranges must yield the same join address")

	otherLo := sla.Address{Space: ram, Offset: 0x2000}
	j3 := m.ConstructJoinAddress(hi, 4, otherLo, 4)
	require.NotEqual(t, j1, j3)
	require.Equal(t, m.JoinSpace(), j1.Space)
}
