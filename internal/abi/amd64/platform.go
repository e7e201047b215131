// SPDX-License-Identifier: Apache-2.0

package amd64

import (
	"os"

	kerrors "kefir/internal/errors"
	"gopkg.in/yaml.v3"
)

// Platform records the capability flags the register allocator and
// code emitter query to decide which instruction forms and register
// sets are available on the running target (supplemented feature,
// SPEC_FULL.md §7, grounded on
// original_source/source/target/abi/amd64/platform.c's capability-flag
// struct).
type Platform struct {
	SoftFloat  bool `yaml:"soft_float"`
	HasAVX     bool `yaml:"has_avx"`
	HasAVX2    bool `yaml:"has_avx2"`
	PreferredVectorWidth int `yaml:"preferred_vector_width"`
}

// DefaultPlatform returns the baseline System V amd64 capability set:
// SSE2 only, no AVX, hardware floating point.
func DefaultPlatform() Platform {
	return Platform{PreferredVectorWidth: 128}
}

// TargetDescriptor is the YAML-loadable configuration of one compile
// target: its calling-convention register sequences and platform
// capability flags (supplemented feature, SPEC_FULL.md §7; ambient
// configuration loading grounded on the teacher's yaml.v3 use for
// its own project/workspace configuration files).
type TargetDescriptor struct {
	Name             string   `yaml:"name"`
	IntegerParamRegs []int    `yaml:"integer_param_regs"`
	SSEParamRegs     []int    `yaml:"sse_param_regs"`
	Platform         Platform `yaml:"platform"`
}

// LoadTargetDescriptor reads and parses a target descriptor YAML file.
func LoadTargetDescriptor(path string) (*TargetDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.NotFound, err, "amd64: reading target descriptor "+path)
	}
	var td TargetDescriptor
	if err := yaml.Unmarshal(data, &td); err != nil {
		return nil, kerrors.Wrap(kerrors.InvalidParameter, err, "amd64: parsing target descriptor "+path)
	}
	return &td, nil
}

// VarargSaveArea computes the size in bytes of the register-save area a
// varargs function's prologue must reserve: one qword per unused
// integer parameter register plus two qwords (16 bytes, for alignment)
// per unused SSE parameter register, grounded on
// original_source/source/codegen/amd64/system-v/abi/vararg.c's
// register-save-area sizing. Registers already consumed by named
// parameters get no slot; a used count above a sequence's length
// contributes zero slots, never a negative size.
func VarargSaveArea(intRegsUsed, sseRegsUsed int) int {
	intSlots := len(IntegerParamRegs) - intRegsUsed
	sseSlots := len(SSEParamRegs) - sseRegsUsed
	if intSlots < 0 {
		intSlots = 0
	}
	if sseSlots < 0 {
		sseSlots = 0
	}
	return intSlots*8 + sseSlots*16
}
