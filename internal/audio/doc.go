// Package audio provides the fixed output contract for synthesized speech,
// conversion of decoded audio into that contract, and the output device
// abstraction used by playback loops.
package audio
