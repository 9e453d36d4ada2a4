// Package blockalloc places the restore pipeline's working regions —
// the eight page-1 preserve blocks, Block 9, Block 10, the final stage's
// page-1 window, and the compressed payloads — inside the free runs a
// ramscan.Scan found. Placement is best-fit, grounded on
// original_source/src/find_ram.rs's FindRam::allocate.
package blockalloc

import (
	"fmt"
	"sort"

	"github.com/vsfrestore/vsfrestore/internal/ramscan"
)

// finalStageMargin is the slack reserved below the snapshot stack pointer
// when the final stage is placed at the bottom of page 1, so the restored
// program's own stack activity after RTI cannot collide with it. The
// original two-stage scheme used a margin of 6; this four-stage scheme
// uses 8 to cover the extra stage transition.
const finalStageMargin = 8

// Block is one placed, sized region of the restore program. Value is the
// byte the free run it was cut from was filled with — whatever a stage
// erases this region to later must write Value, not a hardcoded zero, for
// the final image to match the captured snapshot exactly.
type Block struct {
	Name   string
	Start  uint16
	Length int
	Value  byte
}

// End returns the address one past the block's last byte.
func (b Block) End() uint16 { return b.Start + uint16(b.Length) }

// ErrAllocationFailed reports that no combination of free runs could
// satisfy a region's request. It is recoverable: the driver may retry
// after the caller supplies additional manual-free ranges.
type ErrAllocationFailed struct {
	Region string
}

func (e ErrAllocationFailed) Error() string {
	return fmt.Sprintf("blockalloc: no free run satisfies region %q", e.Region)
}

// Request describes everything the allocator needs to place one full
// restore plan in a single pass.
type Request struct {
	PreserveSizes [8]int // $0100-$01FF split, e.g. 32,32,32,32,32,32,32,32, summing to 256
	Block9Size    int
	Block10Size   int
	FinalSize     int
	SnapshotSP    uint8
	Compressed    map[string]int // region name -> compressed byte length
}

// Plan is the fully resolved placement for one Request.
type Plan struct {
	Preserve   [8]Block
	Block9     Block
	Block10    Block
	Final      Block
	Compressed map[string]Block
	StackRisk  bool
}

// Allocate runs the full placement strategy from spec §4.5: preserve
// blocks first (best-fit, to avoid fragmenting runs the compressed
// payloads need), then Block 9 and Block 10 from two distinct free runs,
// then the final stage's page-1 window (address math, not pool-based),
// then the compressed regions largest-first.
func Allocate(runs []ramscan.FreeRun, req Request) (*Plan, error) {
	pool := newPool(runs)
	plan := &Plan{Compressed: make(map[string]Block)}

	for i, size := range req.PreserveSizes {
		name := fmt.Sprintf("Preserve%d", i+1)
		b, _, ok := pool.take(name, size, -1)
		if !ok {
			return nil, ErrAllocationFailed{Region: name}
		}
		plan.Preserve[i] = b
	}

	b9, b9origin, ok := pool.take("Block9", req.Block9Size, -1)
	if !ok {
		return nil, ErrAllocationFailed{Region: "Block9"}
	}
	plan.Block9 = b9

	b10, _, ok := pool.take("Block10", req.Block10Size, b9origin)
	if !ok {
		return nil, ErrAllocationFailed{Region: "Block10"}
	}
	plan.Block10 = b10

	target, stackRisk := placeFinalStage(req.SnapshotSP, req.FinalSize)
	plan.Final = Block{Name: "Final", Start: target, Length: req.FinalSize}
	plan.StackRisk = stackRisk

	names := make([]string, 0, len(req.Compressed))
	for name := range req.Compressed {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if req.Compressed[names[i]] != req.Compressed[names[j]] {
			return req.Compressed[names[i]] > req.Compressed[names[j]]
		}
		return names[i] < names[j] // deterministic tie-break
	})
	for _, name := range names {
		b, _, ok := pool.take(name, req.Compressed[name], -1)
		if !ok {
			return nil, ErrAllocationFailed{Region: name}
		}
		plan.Compressed[name] = b
	}

	return plan, nil
}

// placeFinalStage picks the final stage's page-1 window. The preferred
// placement starts at $0100 and must leave finalStageMargin bytes of
// headroom below the snapshot's stack pointer; if that doesn't fit, the
// window is pushed to the top of page 1 instead and a StackRisk
// diagnostic is raised.
func placeFinalStage(sp uint8, length int) (target uint16, stackRisk bool) {
	limit := int(sp) - finalStageMargin
	if limit >= length {
		return 0x0100, false
	}
	return 0x0200 - uint16(length), true
}

// poolRun is one free-run fragment still available for allocation. origin
// identifies the FreeRun it was carved from, even after splitting, so
// Block10's request can refuse the source run Block9 was carved from.
type poolRun struct {
	origin int
	start  uint16
	length int
	value  byte
}

type pool struct {
	runs []poolRun
}

func newPool(runs []ramscan.FreeRun) *pool {
	p := &pool{runs: make([]poolRun, len(runs))}
	for i, r := range runs {
		p.runs[i] = poolRun{origin: i, start: r.Start, length: r.Length, value: r.Value}
	}
	return p
}

// take performs one best-fit allocation: the smallest run at least size
// bytes long, excluding any run whose origin equals excludeOrigin (pass -1
// to allow any origin). The allocated bytes are carved from the front of
// the chosen run; any remainder stays in the pool under the same origin.
// The chosen run's origin is returned alongside the Block so a caller can
// exclude it from a later take without Block itself needing to carry that
// bookkeeping field.
func (p *pool) take(name string, size int, excludeOrigin int) (Block, int, bool) {
	if size == 0 {
		// A zero-byte region occupies no run at all.
		return Block{Name: name}, -1, true
	}
	best := -1
	for i, r := range p.runs {
		if r.length < size {
			continue
		}
		if r.origin == excludeOrigin {
			continue
		}
		if best == -1 || r.length < p.runs[best].length {
			best = i
		}
	}
	if best == -1 {
		return Block{}, -1, false
	}

	chosen := p.runs[best]
	block := Block{Name: name, Start: chosen.start, Length: size, Value: chosen.value}
	if chosen.length == size {
		p.runs = append(p.runs[:best], p.runs[best+1:]...)
	} else {
		p.runs[best] = poolRun{origin: chosen.origin, start: chosen.start + uint16(size), length: chosen.length - size, value: chosen.value}
	}
	return block, chosen.origin, true
}
