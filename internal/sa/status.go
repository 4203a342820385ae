// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import (
	"errors"

	"github.com/ibfabric/osmd/internal/mad"
	"github.com/ibfabric/osmd/internal/osmerr"
)

// StatusFor maps an osmerr error to the SA status code the response
// carries. A timeout maps to mad.StatusTimeout, the internal sentinel
// that is never put on the wire. Any other error not recognized below is reported as a generic
// request-invalid rather than leaking the error text onto the wire.
func StatusFor(err error) mad.Status {
	if err == nil {
		return mad.StatusOK
	}
	var oe *osmerr.Error
	if !errors.As(err, &oe) {
		return mad.StatusReqInvalid
	}
	switch oe.Kind {
	case osmerr.KindNotFound:
		return mad.StatusNoRecords
	case osmerr.KindResourceExhausted:
		return mad.StatusInsufficientResources
	case osmerr.KindInvalidPkey:
		return mad.StatusInvalidGID
	case osmerr.KindSaRecordInvalid, osmerr.KindValidation:
		return mad.StatusReqInvalid
	case osmerr.KindTimeout:
		return mad.StatusTimeout
	default:
		return mad.StatusReqInvalid
	}
}
