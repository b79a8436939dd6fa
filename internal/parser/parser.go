package parser

import "nbtp/internal/domain"

// Parser turns a failed item result into a failure record
type Parser interface {
	ParseFailure(result domain.ItemResult) domain.Failure
}
