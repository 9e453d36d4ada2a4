package blockalloc

import (
	"testing"

	"github.com/vsfrestore/vsfrestore/internal/ramscan"
)

func allBlocks(p *Plan) []Block {
	var out []Block
	out = append(out, p.Preserve[:]...)
	out = append(out, p.Block9, p.Block10)
	for _, b := range p.Compressed {
		out = append(out, b)
	}
	return out
}

func overlaps(a, b Block) bool {
	return a.Start < b.End() && b.Start < a.End()
}

func TestAllocateBlocksAreDisjoint(t *testing.T) {
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 400, Value: 0x00},
		{Start: 0x3000, Length: 600, Value: 0x00},
		{Start: 0x4000, Length: 1000, Value: 0x00},
	}
	req := Request{
		PreserveSizes: [8]int{32, 32, 32, 32, 32, 32, 32, 32},
		Block9Size:    80,
		Block10Size:   80,
		FinalSize:     40,
		SnapshotSP:    0xF3,
		Compressed:    map[string]int{"MainRAM": 900, "Color": 50, "SID": 20},
	}
	plan, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	blocks := allBlocks(plan)
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if overlaps(blocks[i], blocks[j]) {
				t.Errorf("blocks overlap: %+v and %+v", blocks[i], blocks[j])
			}
		}
	}
}

func TestAllocatePreserveBlocksCoverPage1(t *testing.T) {
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 2000, Value: 0x00},
		{Start: 0x3000, Length: 400, Value: 0x00},
	}
	req := Request{
		PreserveSizes: [8]int{32, 32, 32, 32, 32, 32, 32, 32},
		Block9Size:    40,
		Block10Size:   40,
		FinalSize:     16,
		SnapshotSP:    0xF3,
	}
	plan, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	total := 0
	for _, b := range plan.Preserve {
		total += b.Length
	}
	if total != 256 {
		t.Errorf("preserve blocks total %d bytes, want 256 (covering $0100-$01FF)", total)
	}
}

func TestAllocateBlock9AndBlock10UseDistinctRuns(t *testing.T) {
	// Two runs, each big enough for only one of the blocks. Best fit puts
	// Block9 into the 60-byte run it fills exactly, so Block10, which may
	// not share Block9's run, has to go into the other one.
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 100, Value: 0x00},
		{Start: 0x3000, Length: 60, Value: 0x00},
	}
	req := Request{
		Block9Size:  60,
		Block10Size: 60,
		FinalSize:   8,
		SnapshotSP:  0xF3,
	}
	plan, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	if plan.Block9.Start == plan.Block10.Start {
		t.Fatalf("Block9 and Block10 placed at the same address")
	}
	// Block9 must have come from $3000 (the exact best fit) and Block10
	// from the $2000 run.
	if plan.Block9.Start != 0x3000 {
		t.Errorf("Block9.Start = %#x, want 0x3000 (the exact best fit)", plan.Block9.Start)
	}
	if plan.Block10.Start < 0x2000 || plan.Block10.End() > 0x2000+100 {
		t.Errorf("Block10 = %+v, want inside the $2000 run (the distinct run)", plan.Block10)
	}
}

func TestAllocateBlock10FailsWhenOnlyOneRunExists(t *testing.T) {
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 200, Value: 0x00},
	}
	req := Request{
		Block9Size:  60,
		Block10Size: 60,
		FinalSize:   8,
		SnapshotSP:  0xF3,
	}
	_, err := Allocate(runs, req)
	af, ok := err.(ErrAllocationFailed)
	if !ok {
		t.Fatalf("Allocate: got error %v (%T), want ErrAllocationFailed", err, err)
	}
	if af.Region != "Block10" {
		t.Errorf("ErrAllocationFailed.Region = %q, want %q", af.Region, "Block10")
	}
}

func TestAllocateFinalStageFitsBelowStackPointer(t *testing.T) {
	target, stackRisk := placeFinalStage(0xF3, 40)
	if stackRisk {
		t.Errorf("stackRisk = true, want false for SP=$F3 and a 40-byte final stage")
	}
	if target != 0x0100 {
		t.Errorf("target = %#x, want 0x0100", target)
	}
}

func TestAllocateFinalStageFallsBackOnHighStack(t *testing.T) {
	// SP=$04 leaves only -4 bytes of headroom once the margin is
	// subtracted, so the final stage cannot fit at $0100.
	target, stackRisk := placeFinalStage(0x04, 0x40)
	if !stackRisk {
		t.Errorf("stackRisk = false, want true for SP=$04 and a 64-byte final stage")
	}
	if target != 0x01C0 {
		t.Errorf("target = %#x, want 0x01C0 (0x0200 - 0x40)", target)
	}
}

func TestAllocateStackRiskPropagatesIntoPlan(t *testing.T) {
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 200, Value: 0x00},
		{Start: 0x3000, Length: 100, Value: 0x00},
	}
	req := Request{
		Block9Size:  40,
		Block10Size: 40,
		FinalSize:   0x40,
		SnapshotSP:  0x04,
	}
	plan, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	if !plan.StackRisk {
		t.Error("plan.StackRisk = false, want true")
	}
	if plan.Final.Start != 0x01C0 {
		t.Errorf("plan.Final.Start = %#x, want 0x01C0", plan.Final.Start)
	}
}

func TestAllocateCompressedRegionsLargestFirstFitsTightSpace(t *testing.T) {
	// Two runs: one exactly fits the larger region, the other exactly
	// fits the smaller. Allocating smallest-first would place the small
	// region in the large run and strand the large region with nowhere
	// to go; largest-first must succeed.
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 1000, Value: 0x00},
		{Start: 0x5000, Length: 40, Value: 0x00},
	}
	req := Request{
		Compressed: map[string]int{"MainRAM": 1000, "Color": 40},
	}
	plan, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	if plan.Compressed["MainRAM"].Start != 0x2000 {
		t.Errorf("MainRAM.Start = %#x, want 0x2000", plan.Compressed["MainRAM"].Start)
	}
	if plan.Compressed["Color"].Start != 0x5000 {
		t.Errorf("Color.Start = %#x, want 0x5000", plan.Compressed["Color"].Start)
	}
}

func TestAllocateFailsWhenDemandExceedsSupply(t *testing.T) {
	runs := []ramscan.FreeRun{{Start: 0x2000, Length: 50, Value: 0x00}}
	req := Request{
		Compressed: map[string]int{"MainRAM": 10000},
	}
	_, err := Allocate(runs, req)
	af, ok := err.(ErrAllocationFailed)
	if !ok {
		t.Fatalf("Allocate: got error %v (%T), want ErrAllocationFailed", err, err)
	}
	if af.Region != "MainRAM" {
		t.Errorf("ErrAllocationFailed.Region = %q, want %q", af.Region, "MainRAM")
	}
}

func TestAllocateDeterministicCompressedOrderingOnTies(t *testing.T) {
	runs := []ramscan.FreeRun{
		{Start: 0x2000, Length: 100, Value: 0x00},
		{Start: 0x3000, Length: 100, Value: 0x00},
	}
	req := Request{
		Compressed: map[string]int{"Alpha": 100, "Beta": 100},
	}
	plan1, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	plan2, err := Allocate(runs, req)
	if err != nil {
		t.Fatalf("Allocate: unexpected error: %v", err)
	}
	if plan1.Compressed["Alpha"].Start != plan2.Compressed["Alpha"].Start ||
		plan1.Compressed["Beta"].Start != plan2.Compressed["Beta"].Start {
		t.Error("Allocate is not deterministic across repeated calls with tied compressed sizes")
	}
}
