package identity

import (
	"context"
	"errors"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Progress reports the outcome of one item of a batch.
type Progress struct {
	Index     int // zero-based
	Total     int
	Reference Reference
	Object    *Object
	Err       error
}

// ProgressFunc is called after each item of a batch, in order.
type ProgressFunc func(Progress)

// ResolveAll resolves refs one at a time, in order. Items that are not
// found, unsupported, or invalid do not stop the batch; their errors are
// joined into the returned error and their slot in the result is the
// NotFound/Unsupported object or nil. An unavailable directory, any other
// directory error, or cancellation of ctx stops the batch and returns the
// results gathered so far.
func (r *Resolver) ResolveAll(ctx context.Context, refs []Reference, progress ProgressFunc) ([]*Object, error) {
	results := make([]*Object, 0, len(refs))
	var itemErrs []error

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		obj, err := r.Resolve(ctx, ref)
		if err == nil {
			err = obj.Err()
		}
		results = append(results, obj)

		if progress != nil {
			progress(Progress{Index: i, Total: len(refs), Reference: ref, Object: obj, Err: err})
		}

		if err == nil {
			continue
		}
		if !isItemError(err) {
			tflog.SubsystemWarn(ctx, ldap.SubsystemIdentity, "Aborting identity batch", map[string]any{
				"index": i,
				"total": len(refs),
				"error": err.Error(),
			})
			return results, err
		}
		itemErrs = append(itemErrs, err)
	}

	tflog.SubsystemDebug(ctx, ldap.SubsystemIdentity, "Resolved identity batch", map[string]any{
		"total":  len(refs),
		"failed": len(itemErrs),
	})
	return results, errors.Join(itemErrs...)
}

// isItemError reports whether err concerns only the item that produced it.
func isItemError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnsupportedObjectClass) ||
		errors.Is(err, ErrUnsupportedIdentityType) ||
		errors.Is(err, ErrInvalidArgument)
}
