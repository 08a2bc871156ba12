//go:build nocgo
// +build nocgo

package audio

import "errors"

// Stub device for builds without cgo audio.

func newPlatformDevice() (Device, error) {
	return nil, errors.New("audio: not available in nocgo build")
}
