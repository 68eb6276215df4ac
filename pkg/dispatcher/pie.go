// Copyright 2025 Certen Protocol

package dispatcher

import (
	"os"

	"github.com/certen/beacon-relay/pkg/tracerunner"
)

func readPIE(pie *tracerunner.PIE) ([]byte, error) {
	return os.ReadFile(pie.Path)
}
