// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"kefir/internal/driver"
	"kefir/internal/lir"
	"kefir/internal/regalloc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: kefirc <file.kefir-ir>")
		os.Exit(1)
	}

	path := os.Args[1]
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	block, err := lir.ParseListing(path, string(source))
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	unit, err := driver.Run(path, block, &regalloc.Program{}, defaultTarget(), &reportingFrame{})
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	for _, b := range unit.Function.Blocks() {
		fmt.Printf("block %d:\n", b.ID)
		for _, phi := range b.Phis {
			fmt.Printf("  phi %d <- %v\n", phi.Ref, phi.Inputs)
		}
		for _, inst := range b.Instructions {
			fmt.Printf("  %v = %s\n", inst.Ref, inst.Op)
		}
	}

	color.Green("✅ Successfully constructed SSA for %s", path)
}

func defaultTarget() regalloc.Target {
	const rax, rcx, rdx, rbx, rsi, rdi, r8, r9, r10, r11, r12, r13, r14, r15 regalloc.Register = 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14
	return regalloc.Target{
		GeneralPurpose: []regalloc.Register{rax, rcx, rdx, rsi, rdi, r8, r9, r10, r11, rbx, r12, r13, r14, r15},
		CalleeSaved: map[regalloc.Register]bool{
			rbx: true, r12: true, r13: true, r14: true, r15: true,
		},
	}
}

// reportingFrame is the CLI's minimal stack-frame sink: it just prints
// what the allocator reports (spec.md §6.2's third, code-emission
// method set is out of this tool's scope).
type reportingFrame struct{}

func (reportingFrame) UseRegister(r regalloc.Register) { fmt.Printf("preserves register %d\n", r) }
func (reportingFrame) UseSSERegister(r regalloc.Register) {
	fmt.Printf("preserves SSE register %d\n", r)
}
func (reportingFrame) EnsureSpillArea(n int) {
	if n > 0 {
		fmt.Printf("spill area: %d qwords\n", n)
	}
}
