package main

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/psx-tools/maspsx/aspsx"
	"github.com/psx-tools/maspsx/processor"
)

// buildOptions layers the version preset, the optional TOML profile and the
// explicit flags, in that order.
func buildOptions(o *cliOptions, fs *pflag.FlagSet, asArgs []string) (processor.Options, error) {
	opts, err := aspsx.Options(o.aspsxVersion)
	if err != nil {
		return opts, err
	}
	if o.aspsxVersion != "" {
		if _, ok := aspsx.SDK(o.aspsxVersion); !ok {
			logrus.Warnf("unknown ASPSX version %s, known versions are %s",
				o.aspsxVersion, strings.Join(aspsx.Versions(), ", "))
		}
	}

	if o.config != "" {
		md, err := toml.DecodeFile(o.config, &opts)
		if err != nil {
			return opts, errors.Wrapf(err, "reading config %s", o.config)
		}
		for _, key := range md.Undecoded() {
			logrus.Warnf("%s: unknown option %q", o.config, key.String())
		}
	}

	if fs.Changed("expand-div") {
		opts.ExpandDiv = o.expandDiv
	}
	if o.dontExpandLi {
		opts.ExpandLi = false
	}
	if fs.Changed("use-comm-section") {
		opts.UseCommSection = o.useCommSection
	}
	if fs.Changed("use-comm-for-lcomm") {
		opts.UseCommForLcomm = o.useCommForLcomm
	}
	if fs.Changed("verbose") {
		opts.Verbose = o.verbose
	}

	limit, found, err := sdataLimit(asArgs)
	if err != nil {
		return opts, err
	}
	if found {
		opts.SdataLimit = limit
	}
	gp, err := aspsx.AllowsGP(o.aspsxVersion)
	if err != nil {
		return opts, err
	}
	if !gp {
		opts.SdataLimit = 0
	}
	return opts, opts.Validate()
}
