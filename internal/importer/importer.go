// Package importer parses bulk purchase CSV uploads into create params.
// Validation and persistence stay in the purchase service; this package only
// gets rows out of whatever file a spreadsheet produced.
package importer

import (
	"io"

	"github.com/duartefn/mercado/internal/purchase"
)

type Service struct {
	parser *Parser
}

func NewService() *Service {
	return &Service{parser: NewParser()}
}

func (s *Service) Import(r io.Reader) ([]purchase.CreateParams, error) {
	return s.parser.Parse(r)
}
