// Package hash keeps short secrets, such as one-time codes, as keyed digests
// so they can be compared without holding the plaintext.
package hash
