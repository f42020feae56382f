package tlb

import "testing"

func TestInsertThenLookupHits(t *testing.T) {
	c := New()
	c.Insert(0x4000, 0x9000)
	pa, ok := c.Lookup(0x4000)
	if !ok || pa != 0x9000 {
		t.Errorf("Lookup = (%#x, %v), want (0x9000, true)", pa, ok)
	}
}

func TestLookupMissOnEmpty(t *testing.T) {
	c := New()
	if _, ok := c.Lookup(0x4000); ok {
		t.Error("Lookup on empty TLB reported a hit")
	}
}

func TestInvalidateClearsSlot(t *testing.T) {
	c := New()
	c.Insert(0x4000, 0x9000)
	c.Invalidate(0x4000)
	if _, ok := c.Lookup(0x4000); ok {
		t.Error("Lookup hit after Invalidate")
	}
}

func TestMissRateTracksLookups(t *testing.T) {
	c := New()
	if got := c.MissRate(); got != 0 {
		t.Errorf("MissRate on fresh TLB = %v, want 0", got)
	}
	c.Insert(0x1000, 0x2000)
	c.Lookup(0x1000) // hit
	c.Lookup(0x3000) // miss (different tag, same or different slot)
	if got := c.MissRate(); got <= 0 || got >= 1 {
		t.Errorf("MissRate = %v, want strictly between 0 and 1", got)
	}
}

func TestAliasingSlotsEvictEachOther(t *testing.T) {
	c := New()
	// These two addresses share a TLB slot (same va mod Entries*PageSize)
	// but have different tags, so the second Insert evicts the first.
	lowVA := uint32(0x1000)
	aliasVA := lowVA + Entries*4096
	c.Insert(lowVA, 0xAAAA000)
	c.Insert(aliasVA, 0xBBBB000)
	if _, ok := c.Lookup(lowVA); ok {
		t.Error("expected lowVA to have been evicted by its alias")
	}
	pa, ok := c.Lookup(aliasVA)
	if !ok || pa != 0xBBBB000 {
		t.Errorf("Lookup(aliasVA) = (%#x, %v), want (0xBBBB000, true)", pa, ok)
	}
}
