// Package blobcopy copies newly arrived blobs into the processed container
// under a derived name.
package blobcopy

import (
	"errors"
	"fmt"
	"strings"
)

// DestinationPrefix is prepended to the source basename to form the destination name.
const DestinationPrefix = "processed_"

// ErrInvalidName is returned for a source name without a final path segment.
var ErrInvalidName = errors.New("invalid blob name")

// TransferUnit is one source object on its way to the destination container.
type TransferUnit struct {
	SourceName      string
	Data            []byte
	ContentType     string
	DestinationName string
}

// NewTransferUnit builds a unit for the object at source. The name may carry
// leading path segments, e.g. "unprocessed-pdf/report.pdf".
func NewTransferUnit(source string, data []byte, contentType string) (TransferUnit, error) {
	if Basename(source) == "" {
		return TransferUnit{}, fmt.Errorf("%w: %q", ErrInvalidName, source)
	}
	return TransferUnit{
		SourceName:      source,
		Data:            data,
		ContentType:     contentType,
		DestinationName: DestinationName(source),
	}, nil
}

// Size returns the payload length in bytes.
func (u TransferUnit) Size() int {
	return len(u.Data)
}

// Basename returns the last "/"-separated segment of name.
func Basename(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

// DestinationName maps a source object name to its name in the processed container.
func DestinationName(source string) string {
	return DestinationPrefix + Basename(source)
}
