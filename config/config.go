/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package config holds the settings that say where upstream tool outputs are,
// how to treat missing or duplicate results, and which tool binaries the
// pipeline stages run. Settings come from command line flags, a YAML file, or
// SEROAMP_* environment variables, via viper.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/wtsi-ssg/seroamp/internal/input"
	"github.com/wtsi-ssg/seroamp/matrix"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNotDir      = Error("not a directory")
	ErrEmptySuffix = Error("output file suffix must not be empty")
	ErrBadThreads  = Error("threads must be at least 1")
	ErrBadWait     = Error("wait must not be negative")
)

const envPrefix = "SEROAMP"

// keys for viper.
const (
	KeySeqSeroDir     = "seqsero.dir"
	KeySeqSeroSuffix  = "seqsero.suffix"
	KeySeqSeroMissing = "seqsero.missing"
	KeyISPCRDir       = "ispcr.dir"
	KeyISPCRSuffix    = "ispcr.suffix"
	KeyISPCRMissing   = "ispcr.missing"
	KeyContigsDir     = "ispcr.contigs_dir"
	KeyOutput         = "report.output"
	KeyDuplicates     = "report.duplicates"
	KeyWait           = "report.wait"
	KeyAscp           = "tools.ascp"
	KeyAscpKey        = "tools.ascp_key"
	KeyAscpRate       = "tools.ascp_rate"
	KeyFastqDump      = "tools.fastq_dump"
	KeySeqSero        = "tools.seqsero"
	KeyJava           = "tools.java"
	KeyTrimmomatic    = "tools.trimmomatic"
	KeyAdapters       = "tools.adapters"
	KeyMegahit        = "tools.megahit"
	KeyISPCR          = "tools.ispcr"
	KeyThreads        = "tools.threads"
)

// defaults match the file names and tools of a SeqSero/isPcr run done in the
// current directory.
var defaults = map[string]any{
	KeySeqSeroDir:     ".",
	KeySeqSeroSuffix:  "_seqsero.out",
	KeySeqSeroMissing: input.Tolerate.String(),
	KeyISPCRDir:       ".",
	KeyISPCRSuffix:    "_is.out",
	KeyISPCRMissing:   input.Fail.String(),
	KeyContigsDir:     "contigs",
	KeyOutput:         "results.out",
	KeyDuplicates:     matrix.Join.String(),
	KeyWait:           "0s",
	KeyAscp:           "ascp",
	KeyAscpKey:        "asperaweb_id_dsa.openssh",
	KeyAscpRate:       "50m",
	KeyFastqDump:      "fastq-dump",
	KeySeqSero:        "SeqSero.py",
	KeyJava:           "java",
	KeyTrimmomatic:    "trimmomatic.jar",
	KeyAdapters:       "NexteraPE-PE.fa",
	KeyMegahit:        "megahit",
	KeyISPCR:          "isPcr",
	KeyThreads:        32,
}

// Default returns the default value of the given key as a string, eg. for use
// as the default value of a command line flag.
func Default(key string) string {
	return fmt.Sprint(defaults[key])
}

// Tools names the external programs and their settings used by the pipeline
// stages.
type Tools struct {
	Ascp        string
	AscpKey     string
	AscpRate    string
	FastqDump   string
	SeqSero     string
	Java        string
	Trimmomatic string
	Adapters    string
	Megahit     string
	ISPCR       string
	Threads     int
}

// Config is passed to everything that needs to know where files are or how
// to treat them.
type Config struct {
	SeqSeroDir     string
	SeqSeroSuffix  string
	MissingSeqSero input.MissingPolicy
	ISPCRDir       string
	ISPCRSuffix    string
	MissingISPCR   input.MissingPolicy
	ContigsDir     string
	Output         string
	Duplicates     matrix.Policy
	Wait           time.Duration
	Tools          Tools
}

// NewViper returns a viper with our defaults set, that reads SEROAMP_*
// environment variables, eg. SEROAMP_ISPCR_SUFFIX for ispcr.suffix. If
// configFile is not blank, it is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		return v, nil
	}

	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", configFile, err)
	}

	return v, nil
}

// FromViper builds a Config from the given viper. All bad values are reported
// together.
func FromViper(v *viper.Viper) (*Config, error) {
	var merr *multierror.Error

	c := &Config{
		SeqSeroDir:    v.GetString(KeySeqSeroDir),
		SeqSeroSuffix: v.GetString(KeySeqSeroSuffix),
		ISPCRDir:      v.GetString(KeyISPCRDir),
		ISPCRSuffix:   v.GetString(KeyISPCRSuffix),
		ContigsDir:    v.GetString(KeyContigsDir),
		Output:        v.GetString(KeyOutput),
		Wait:          v.GetDuration(KeyWait),
		Tools: Tools{
			Ascp:        v.GetString(KeyAscp),
			AscpKey:     v.GetString(KeyAscpKey),
			AscpRate:    v.GetString(KeyAscpRate),
			FastqDump:   v.GetString(KeyFastqDump),
			SeqSero:     v.GetString(KeySeqSero),
			Java:        v.GetString(KeyJava),
			Trimmomatic: v.GetString(KeyTrimmomatic),
			Adapters:    v.GetString(KeyAdapters),
			Megahit:     v.GetString(KeyMegahit),
			ISPCR:       v.GetString(KeyISPCR),
			Threads:     v.GetInt(KeyThreads),
		},
	}

	var err error

	if c.MissingSeqSero, err = input.ParsePolicy(v.GetString(KeySeqSeroMissing)); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeySeqSeroMissing, err))
	}

	if c.MissingISPCR, err = input.ParsePolicy(v.GetString(KeyISPCRMissing)); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeyISPCRMissing, err))
	}

	if c.Duplicates, err = matrix.ParsePolicy(v.GetString(KeyDuplicates)); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeyDuplicates, err))
	}

	if c.SeqSeroSuffix == "" {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeySeqSeroSuffix, ErrEmptySuffix))
	}

	if c.ISPCRSuffix == "" {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeyISPCRSuffix, ErrEmptySuffix))
	}

	if c.Wait < 0 {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeyWait, ErrBadWait))
	}

	if c.Tools.Threads < 1 {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", KeyThreads, ErrBadThreads))
	}

	return c, merr.ErrorOrNil()
}

// ValidateInputDirs checks that the SeqSero and isPcr output directories
// exist, reporting all problems together.
func (c *Config) ValidateInputDirs() error {
	var merr *multierror.Error

	for key, dir := range map[string]string{KeySeqSeroDir: c.SeqSeroDir, KeyISPCRDir: c.ISPCRDir} {
		if err := checkDir(dir); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s %s: %w", key, dir, err))
		}
	}

	return merr.ErrorOrNil()
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return ErrNotDir
	}

	return nil
}

// SeqSeroPath returns the path of the named sample's SeqSero output.
func (c *Config) SeqSeroPath(sample string) string {
	return filepath.Join(c.SeqSeroDir, sample+c.SeqSeroSuffix)
}

// ISPCRPath returns the path of the named sample's isPcr output.
func (c *Config) ISPCRPath(sample string) string {
	return filepath.Join(c.ISPCRDir, sample+c.ISPCRSuffix)
}

// RequiredPaths returns the output paths of the given samples that must exist
// because their missing policy is Fail.
func (c *Config) RequiredPaths(samples []string) []string {
	var paths []string

	for _, name := range samples {
		if c.MissingSeqSero == input.Fail {
			paths = append(paths, c.SeqSeroPath(name))
		}

		if c.MissingISPCR == input.Fail {
			paths = append(paths, c.ISPCRPath(name))
		}
	}

	return paths
}

// ContigsPath returns the path of the named sample's assembled contigs.
func (c *Config) ContigsPath(sample string) string {
	return filepath.Join(c.ContigsDir, sample+".contigs.fa")
}
