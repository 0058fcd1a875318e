// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

// Package curated is a helper package for the plain Go language error type.
// Curated errors implement the error interface.
//
// Curated errors are created with the Errorf() function. This is similar to
// the Errorf() function in the fmt package. It takes a formatting pattern,
// placeholder values and returns an error.
//
// The pattern is what differentiates one curated error from another. Packages
// export the patterns of the errors they can return so that callers can test
// for them with the Is() and Has() functions. For example:
//
//	const StallError = "linebuf: stalled waiting for a buffer (%v)"
//
//	err := curated.Errorf(StallError, timeout)
//
//	if curated.Is(err, StallError) {
//		fmt.Println("true")
//	}
//
// The Has() function is similar but checks if a pattern occurs somewhere in
// the error chain:
//
//	f := curated.Errorf("display: %v", err)
//
//	if curated.Has(f, StallError) {
//		fmt.Println("true")
//	}
//
// The IsAny() function answers whether the error was created by
// curated.Errorf(). Put another way, it returns true if the error is
// 'expected' and false if the error is 'unexpected'.
//
// The Error() function implementation for curated errors ensures that the
// error chain is normalised. Specifically, that the chain does not contain
// duplicate adjacent parts. This means a package can prefix an error with its
// own name without worrying whether the wrapped error already has it.
//
// Curated errors also implement Unwrap() so that the errors package in the
// standard library can see through them to any wrapped non-curated error.
package curated
