// Package clock lets code read the current time through Clocker so tests can
// move time forward without sleeping.
package clock
