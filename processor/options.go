package processor

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Options selects which historical assembler quirks are reproduced.
type Options struct {
	// SdataLimit is the -G threshold in bytes; 0 disables gp-relative addressing.
	SdataLimit int `toml:"sdata_limit"`

	ExpandDiv bool `toml:"expand_div"`
	ExpandLi  bool `toml:"expand_li"`

	// NopAtExpansion inserts a load delay nop even when the next instruction
	// is itself expanded through $at.
	NopAtExpansion bool `toml:"nop_at_expansion"`
	NopMfloMfhi    bool `toml:"nop_mflo_mfhi"`
	DivUsesTge     bool `toml:"div_uses_tge"`
	GpAllowOffset  bool `toml:"gp_allow_offset"`
	GpAllowLa      bool `toml:"gp_allow_la"`
	AddiuAt        bool `toml:"addiu_at"`
	SltuAt         bool `toml:"sltu_at"`

	UseCommSection  bool `toml:"use_comm_section"`
	UseCommForLcomm bool `toml:"use_comm_for_lcomm"`

	// Verbose annotates the output with "# DEBUG:" comments.
	Verbose bool `toml:"verbose"`
}

// DefaultOptions returns the options of a run with no quirks selected.
func DefaultOptions() Options {
	return Options{NopMfloMfhi: true}
}

// Validate reports every inconsistent setting at once.
func (o Options) Validate() error {
	var result *multierror.Error
	if o.SdataLimit < 0 {
		result = multierror.Append(result, errors.Errorf("sdata limit must not be negative, got %d", o.SdataLimit))
	}
	if o.UseCommForLcomm && !o.UseCommSection {
		result = multierror.Append(result, errors.New("use_comm_for_lcomm requires use_comm_section"))
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(errors.New(strings.TrimSpace(err.Error())), "invalid options")
	}
	return nil
}
