// Command imager converts images and video into planar YUV 4:2:0 frames,
// exports them back to common image formats and plays frame sequences to
// browsers over WHEP.
package main
