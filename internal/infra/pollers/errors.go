package pollers

import (
	"fmt"

	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

func errTooManyFailures(source string, count int) error {
	return apperrors.Wrap("upstream_error", fmt.Sprintf("poller %s has failed %d consecutive times", source, count), nil)
}
