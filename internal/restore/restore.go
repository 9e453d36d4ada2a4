// Package restore builds the four-stage 6502 program that replays a
// captured machine state back into real hardware memory: a loader that
// decompresses the bulk of the image, followed by three erasure stages
// (Block 9, Block 10, and a page-1 final stage) that each destroy the
// footprint of the one before it, ending in an RTI that resumes the
// snapshot's program counter exactly where it was captured.
package restore

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/asm6502"
	"github.com/vsfrestore/vsfrestore/internal/blockalloc"
	"github.com/vsfrestore/vsfrestore/internal/lzsa1"
	"github.com/vsfrestore/vsfrestore/internal/ramscan"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

// loaderOrigin is the code entry point for Stage L, immediately after the
// minimal BASIC stub PrgBuilder/CrtBuilder prepend.
const loaderOrigin = 0x080D

// Diagnostics carries non-fatal observations codegen makes while placing
// the restore program.
type Diagnostics struct {
	// StackRisk is set when the final stage could not fit below the
	// snapshot's stack pointer with the required margin and was placed
	// at the top of page 1 instead.
	StackRisk bool
}

// Program is the fully generated, placed restore pipeline.
type Program struct {
	Loader  []byte // assembled at loaderOrigin
	Block9  []byte
	Block10 []byte
	Final   []byte

	Block9Addr  uint16
	Block10Addr uint16
	FinalAddr   uint16

	MainPayload    []byte // LZSA1 stream for $0200-$FFEF (original page-1 bytes and Block 9/10 code already patched in)
	MainPayloadDst uint16 // where Stage L stages the payload before the relocated decompressor runs

	ColorPayload []byte
	VICPayload   []byte
	SIDPayload   []byte
	ZPPayload    []byte

	Diagnostics Diagnostics
}

// ErrAllocationFailed is returned verbatim from the block allocator so
// callers (the driver) can retry with manual-free ranges without caring
// which package raised it.
type ErrAllocationFailed = blockalloc.ErrAllocationFailed

// Generate builds the restore program for st. manualFree is zeroed in a
// scratch copy of st.RAM before scanning for free space, letting the
// driver retry a failed allocation without mutating the caller's state.
func Generate(st *snapshot.State, manualFree []ramscan.FreeRun) (*Program, error) {
	ram := st.RAM
	for _, r := range manualFree {
		for i := 0; i < r.Length; i++ {
			ram[int(r.Start)+i] = 0
		}
	}
	runs := ramscan.Scan(&ram)

	colorPayload, err := compressColorRAM(st.ColorRAM)
	if err != nil {
		return nil, err
	}
	vicPayload, err := lzsa1.Compress(st.VIC[:])
	if err != nil {
		return nil, err
	}
	sidPayload, err := lzsa1.Compress(st.SID[:])
	if err != nil {
		return nil, err
	}
	zpPayload, err := lzsa1.Compress(st.RAM[0x0002:0x00F8])
	if err != nil {
		return nil, err
	}

	block9Size := assembleSize(block9Stmts(zeroPlacement(), [16]byte{}))
	block10Size := assembleSize(block10Stmts(zeroPlacement(), [8]byte{}, 0, 0, 0))
	finalSize := assembleSize(finalStmts(zeroPlacement(), finalIO{}, 0))

	unpatchedRegion := make([]byte, 0xFFF0-0x0200)
	copy(unpatchedRegion, st.RAM[0x0200:0xFFF0])
	mainPayloadEstimate, err := lzsa1.Compress(unpatchedRegion)
	if err != nil {
		return nil, err
	}

	req := blockalloc.Request{
		PreserveSizes: [8]int{32, 32, 32, 32, 32, 32, 32, 32},
		Block9Size:    block9Size,
		Block10Size:   block10Size,
		FinalSize:     finalSize,
		SnapshotSP:    st.CPU.SP,
		Compressed:    map[string]int{"MainRAM": len(mainPayloadEstimate)},
	}
	plan, err := blockalloc.Allocate(runs, req)
	if err != nil {
		return nil, err
	}

	p := placement{
		block9Addr:   plan.Block9.Start,
		block10Addr:  plan.Block10.Start,
		block9Len:    block9Size,
		block10Len:   block10Size,
		block9Value:  plan.Block9.Value,
		block10Value: plan.Block10.Value,
		finalAddr:    plan.Final.Start,
		snapshotSP:   st.CPU.SP,
	}
	for i := range plan.Preserve {
		p.preserve[i] = block{Start: plan.Preserve[i].Start, Length: plan.Preserve[i].Length, Value: plan.Preserve[i].Value}
	}

	var vectors [16]byte
	copy(vectors[:], st.RAM[0xFFF0:0x10000])
	var zpHigh [8]byte
	copy(zpHigh[:], st.RAM[0x00F8:0x0100])

	b9 := block9Stmts(p, vectors)
	_, block9Code, err := asm6502.Assemble(b9)
	if err != nil {
		return nil, fmt.Errorf("restore: assembling Block 9: %w", err)
	}

	b10 := block10Stmts(p, zpHigh, st.CPU.A, st.CPU.X, st.CPU.Y)
	_, block10Code, err := asm6502.Assemble(b10)
	if err != nil {
		return nil, fmt.Errorf("restore: assembling Block 10: %w", err)
	}

	io := finalIOFromState(st)
	f := finalStmts(p, io, st.CPU.A)
	_, finalCode, err := asm6502.Assemble(f)
	if err != nil {
		return nil, fmt.Errorf("restore: assembling the final stage: %w", err)
	}

	// Block 9 and Block 10 live inside the $0200-$FFEF range the main
	// decompression writes wholesale, so their own machine code rides
	// through that decompression like any other patched region rather
	// than being copied into place separately — by the time the
	// relocated decompressor reaches end of stream, block9Addr already
	// holds Block 9's code, ready to run.
	mainPayload, err := buildMainPayload(st, plan.Preserve, plan.Block9, block9Code, plan.Block10, block10Code)
	if err != nil {
		return nil, err
	}
	if len(mainPayload) > plan.Compressed["MainRAM"].Length {
		req.Compressed["MainRAM"] = len(mainPayload)
		plan, err = blockalloc.Allocate(runs, req)
		if err != nil {
			return nil, err
		}
	}
	mainPayloadDst := plan.Compressed["MainRAM"].Start

	lstmts := buildLoaderStmts(st, p, loaderPayloads{
		color: colorPayload, vic: vicPayload, sid: sidPayload, zp: zpPayload,
		mainRAM: mainPayload, mainRAMDst: mainPayloadDst,
		finalCode: finalCode,
	})
	_, loaderCode, err := asm6502.Assemble(lstmts)
	if err != nil {
		return nil, fmt.Errorf("restore: assembling the loader: %w", err)
	}

	return &Program{
		Loader:         loaderCode,
		Block9:         block9Code,
		Block10:        block10Code,
		Final:          finalCode,
		Block9Addr:     p.block9Addr,
		Block10Addr:    p.block10Addr,
		FinalAddr:      p.finalAddr,
		MainPayload:    mainPayload,
		MainPayloadDst: mainPayloadDst,
		ColorPayload:   colorPayload,
		VICPayload:     vicPayload,
		SIDPayload:     sidPayload,
		ZPPayload:      zpPayload,
		Diagnostics:    Diagnostics{StackRisk: plan.StackRisk},
	}, nil
}

func zeroPlacement() placement {
	return placement{}
}

func assembleSize(stmts []asm6502.Stmt) int {
	withOrg := append([]asm6502.Stmt{asm6502.OrgStmt(0x0000)}, stmts...)
	_, code, err := asm6502.Assemble(withOrg)
	if err != nil {
		// Every stage body is built from fixed-width instructions with
		// literal operands on this sizing pass, so this can only fail if
		// a stage builder itself is broken.
		panic(fmt.Sprintf("restore: internal sizing assembly failed: %v", err))
	}
	return len(code)
}

// loaderPayloads bundles everything Stage L needs to embed alongside its
// own code: the four small compressed images it decompresses itself, and
// the main-RAM payload and final-stage bytes the relocated decompressor
// and the post-decompression patch need.
type loaderPayloads struct {
	color, vic, sid, zp    []byte
	mainRAM                []byte
	mainRAMDst             uint16
	finalCode              []byte
}

// compressColorRAM packs each byte's low nibble before compressing, since
// only the low four bits of color RAM are wired on real hardware.
func compressColorRAM(colorRAM [1024]byte) ([]byte, error) {
	packed := make([]byte, len(colorRAM))
	for i, b := range colorRAM {
		packed[i] = b & 0x0F
	}
	return lzsa1.Compress(packed)
}

// buildMainPayload patches the original page-1 bytes into each preserve
// block's free-run address, and Block 9's and Block 10's own assembled
// code into their free-run addresses, before compressing $0200-$FFEF. Block
// 9's restore copy (stages.go, block9Stmts) then pulls the genuine snapshot
// bytes back out of decompressed RAM rather than whatever free-run filler
// value happened to be there, and Block 9 and Block 10 are already correct,
// executable code the instant the decompressor that wrote them reaches end
// of stream and jumps to block9Addr.
func buildMainPayload(st *snapshot.State, preserve [8]blockalloc.Block, b9 blockalloc.Block, b9Code []byte, b10 blockalloc.Block, b10Code []byte) ([]byte, error) {
	region := make([]byte, 0xFFF0-0x0200)
	copy(region, st.RAM[0x0200:0xFFF0])

	offset := uint16(0x0100)
	for _, pb := range preserve {
		src := st.RAM[offset : offset+uint16(pb.Length)]
		dst := region[pb.Start-0x0200 : pb.Start-0x0200+uint16(pb.Length)]
		copy(dst, src)
		offset += uint16(pb.Length)
	}

	copy(region[b9.Start-0x0200:b9.Start-0x0200+uint16(len(b9Code))], b9Code)
	copy(region[b10.Start-0x0200:b10.Start-0x0200+uint16(len(b10Code))], b10Code)

	return lzsa1.Compress(region)
}

func finalIOFromState(st *snapshot.State) finalIO {
	return finalIO{
		ddr:        st.CPU.PortDDR,
		portData:   st.CPU.PortData,
		vicIRQMask: st.VIC[0x1A],
		cia1ICR:    st.CIA1.IER,
		cia2ICR:    st.CIA2.IER,
		cia1CRA:    st.CIA1.CRA,
		cia1CRB:    st.CIA1.CRB,
		cia2CRA:    st.CIA2.CRA,
		cia2CRB:    st.CIA2.CRB,
		sp:         st.CPU.SP,
		p:          st.CPU.P,
		pc:         st.CPU.PC,
	}
}
