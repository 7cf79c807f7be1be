package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// minimumVersions are the oldest engines supporting window functions and the casts the dialects emit.
var minimumVersions = map[domain.Dialect]string{
	domain.SQLite:   ">= 3.25.0",
	domain.Postgres: ">= 9.4",
	domain.MySQL:    ">= 8.0.17",
}

var leadingVersion = regexp.MustCompile(`^\d+(\.\d+)*`)

// CheckVersion verifies that a reported server version is new enough for the dialect.
func CheckVersion(d domain.Dialect, reported string) error {
	want, ok := minimumVersions[d]
	if !ok {
		return fmt.Errorf("unsupported dialect: %s", d)
	}

	// Distribution suffixes such as "-0ubuntu0.22.04.1" or " (Debian ...)" would
	// parse as prereleases and fail every constraint.
	core := leadingVersion.FindString(reported)
	if core == "" {
		return fmt.Errorf("cannot parse %s server version %q", d, reported)
	}
	v, err := version.NewVersion(core)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}
	constraint, err := version.NewConstraint(want)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%s %s is not supported, need %s", d, reported, want)
	}
	return nil
}

// Verify asks the adapter for its server version and checks it.
func Verify(ctx context.Context, a Adapter) error {
	reported, err := a.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read server version: %w", err)
	}
	return CheckVersion(a.GetDialect(), reported)
}
