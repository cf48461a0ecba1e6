package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go_sitectl/internal/domainutil"
)

// resolveSite returns the site named on the command line or, when none
// was given, the site whose root contains the working directory
func resolveSite(args []string, fsRoot string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		if url, err := domainutil.NormalizeSite(args[0]); err == nil {
			return url, nil
		}
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("no site given: %w", err)
	}
	return siteFromDir(wd, fsRoot)
}

func siteFromDir(dir, fsRoot string) (string, error) {
	rel, err := filepath.Rel(fsRoot, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("no site given and %s is not inside %s", dir, fsRoot)
	}
	return strings.SplitN(rel, string(filepath.Separator), 2)[0], nil
}
