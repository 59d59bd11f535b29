package config

import (
	"flag"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// RegisterSourceFlags binds the source selection flags to fs with defaults
// taken from cfg. Call the returned function after fs.Parse to validate the
// values and copy them into cfg.
func RegisterSourceFlags(fs *flag.FlagSet, cfg *Config) func() error {
	member := cfg.Member
	if member == "" {
		member = "auto"
	}

	url := fs.String("url", cfg.SourceURL, "GPV archive URL")
	dataDir := fs.String("data-dir", cfg.DataDir, "directory for the downloaded archive and extracted grid file")
	memberFlag := fs.String("member", member, `archive member to extract, or "auto" to pick the first grid file`)
	filter := fs.String("filter", cfg.Filter.String(), "message filter as key=value,key=value")

	return func() error {
		var errs *multierror.Error
		f, err := domain.ParseFilter(*filter)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("-filter: %w", err))
		}
		if *url == "" {
			errs = multierror.Append(errs, fmt.Errorf("-url: %w: must not be empty", domain.ErrValidation))
		}
		if err := errs.ErrorOrNil(); err != nil {
			return err
		}
		cfg.SourceURL = *url
		cfg.DataDir = *dataDir
		cfg.Member = ParseMember(*memberFlag)
		cfg.Filter = f
		return nil
	}
}

// RegisterIngestFlags binds the storage mode flags to fs; see RegisterSourceFlags.
func RegisterIngestFlags(fs *flag.FlagSet, cfg *Config) func() error {
	mode := fs.String("mode", string(cfg.IngestMode), "replace or append existing forecast rows")
	mapping := fs.String("mapping", string(cfg.Mapping), "converted stores sample values, scaffold stores coordinates only")

	return func() error {
		var errs *multierror.Error
		m, err := domain.ParseMode(*mode)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("-mode: %w", err))
		}
		mp, err := domain.ParseMapping(*mapping)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("-mapping: %w", err))
		}
		if err := errs.ErrorOrNil(); err != nil {
			return err
		}
		cfg.IngestMode = m
		cfg.Mapping = mp
		return nil
	}
}
