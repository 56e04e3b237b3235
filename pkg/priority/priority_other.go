//go:build !linux

package priority

import "errors"

var errUnsupported = errors.New("priority: elevation unsupported on this platform")

func platformTryRaise(class Class) error {
	if class == Normal {
		return nil
	}

	return errUnsupported
}
