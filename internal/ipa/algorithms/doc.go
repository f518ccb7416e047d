// Package algorithms holds the reference control algorithms run by
// ipa.Module: agc, awb, cproc, dpf, filter and lsc.
//
// They are deliberately simple. Their job is to exercise the state
// contract: read ActiveState by value, return a whole sub-record, tag
// sensor controls with their effective frame.
package algorithms
