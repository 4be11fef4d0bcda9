package assert

import "github.com/oomph-ac/contactsim/oerror"

// IsTrue panics with an invariant violation of the kind passed if ok is false.
func IsTrue(ok bool, kind error, message string, args ...any) {
	if !ok {
		panic(oerror.New(kind, message, args...))
	}
}
