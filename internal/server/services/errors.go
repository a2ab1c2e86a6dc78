package services

import (
	"fmt"

	"github.com/dmitrijs2005/donationhub/internal/common"
)

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorBadRequest, msg)
}

func notFound(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorNotFound, msg)
}
