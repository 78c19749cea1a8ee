//go:build cgo && vpx

package stream

/*
#cgo CFLAGS: -I/usr/include -I/usr/local/include
#cgo LDFLAGS: -lvpx

#include <stdlib.h>
#include <vpx/vpx_encoder.h>
#include <vpx/vp8cx.h>

static vpx_codec_iface_t* vpx_iface() { return vpx_codec_vp8_cx(); }

// cgo cannot reach into the packet's data union.
static void* pkt_buf(const vpx_codec_cx_pkt_t* p) { return p->data.frame.buf; }
static size_t pkt_size(const vpx_codec_cx_pkt_t* p) { return p->data.frame.sz; }
static int pkt_is_key(const vpx_codec_cx_pkt_t* p) { return (p->data.frame.flags & VPX_FRAME_IS_KEY) != 0; }
*/
import "C"

import (
	"errors"
	"unsafe"

	"imager/internal/yuv"
)

// VP8Encoder wraps a realtime libvpx VP8 encoder for one frame size.
type VP8Encoder struct {
	ctx  C.vpx_codec_ctx_t
	cfg  C.vpx_codec_enc_cfg_t
	img  *C.vpx_image_t
	w, h int
	pts  C.vpx_codec_pts_t
	open bool
}

type VP8Config struct {
	Width, Height int
	FPS           int
	BitrateKbps   int
}

func NewVP8Encoder(cfg VP8Config) (*VP8Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, errors.New("invalid VP8 encoder config")
	}
	e := &VP8Encoder{w: cfg.Width, h: cfg.Height}
	if C.vpx_codec_enc_config_default(C.vpx_iface(), &e.cfg, 0) != C.VPX_CODEC_OK {
		return nil, errors.New("vpx_codec_enc_config_default failed")
	}
	e.cfg.g_w = C.uint(cfg.Width)
	e.cfg.g_h = C.uint(cfg.Height)
	e.cfg.g_timebase.num = 1
	e.cfg.g_timebase.den = C.int(cfg.FPS)
	if cfg.BitrateKbps > 0 {
		e.cfg.rc_target_bitrate = C.uint(cfg.BitrateKbps)
	}
	e.cfg.g_pass = C.VPX_RC_ONE_PASS
	e.cfg.g_threads = 4
	e.cfg.rc_end_usage = C.VPX_CBR
	e.cfg.kf_mode = C.VPX_KF_AUTO

	if C.vpx_codec_enc_init_ver(&e.ctx, C.vpx_iface(), &e.cfg, 0, C.VPX_ENCODER_ABI_VERSION) != C.VPX_CODEC_OK {
		return nil, errors.New("vpx_codec_enc_init_ver failed")
	}
	e.open = true
	e.img = C.vpx_img_alloc(nil, C.VPX_IMG_FMT_I420, C.uint(e.w), C.uint(e.h), 1)
	if e.img == nil {
		e.Close()
		return nil, errors.New("vpx_img_alloc failed")
	}
	return e, nil
}

// Encode encodes one planar frame of the encoder's size.
func (e *VP8Encoder) Encode(frame *yuv.Image) (out [][]byte, keyframe bool, err error) {
	if !e.open {
		return nil, false, errors.New("encoder closed")
	}
	if frame.Width() != e.w || frame.Height() != e.h {
		return nil, false, errors.New("frame size differs from encoder")
	}
	copyPlane(unsafe.Pointer(e.img.planes[0]), int(e.img.stride[0]), frame.Y(), e.w, e.h)
	copyPlane(unsafe.Pointer(e.img.planes[1]), int(e.img.stride[1]), frame.U(), e.w/2, e.h/2)
	copyPlane(unsafe.Pointer(e.img.planes[2]), int(e.img.stride[2]), frame.V(), e.w/2, e.h/2)

	if C.vpx_codec_encode(&e.ctx, e.img, e.pts, 1, 0, C.VPX_DL_REALTIME) != C.VPX_CODEC_OK {
		return nil, false, errors.New("vpx_codec_encode failed")
	}
	e.pts++

	var iter C.vpx_codec_iter_t
	for {
		pkt := C.vpx_codec_get_cx_data(&e.ctx, &iter)
		if pkt == nil {
			break
		}
		if pkt.kind != C.VPX_CODEC_CX_FRAME_PKT {
			continue
		}
		out = append(out, C.GoBytes(C.pkt_buf(pkt), C.int(C.pkt_size(pkt))))
		keyframe = keyframe || C.pkt_is_key(pkt) != 0
	}
	return out, keyframe, nil
}

func (e *VP8Encoder) Close() {
	if e.img != nil {
		C.vpx_img_free(e.img)
		e.img = nil
	}
	if e.open {
		C.vpx_codec_destroy(&e.ctx)
		e.open = false
	}
}
