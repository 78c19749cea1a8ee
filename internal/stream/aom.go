//go:build cgo && aom

package stream

/*
#cgo CFLAGS: -I/usr/include -I/usr/local/include
#cgo LDFLAGS: -laom

#include <stdlib.h>
#include <aom/aom_encoder.h>
#include <aom/aomcx.h>

static aom_codec_iface_t* aom_iface_av1() { return aom_codec_av1_cx(); }

// aom_codec_control is variadic and the packet data is a union; cgo reaches neither.
static aom_codec_err_t aom_set_int(aom_codec_ctx_t* ctx, int id, int v) { return aom_codec_control(ctx, id, v); }
static int aom_pkt_is_frame(const aom_codec_cx_pkt_t* p) { return p->kind == AOM_CODEC_CX_FRAME_PKT; }
static void* aom_pkt_buf(const aom_codec_cx_pkt_t* p) { return p->data.frame.buf; }
static size_t aom_pkt_size(const aom_codec_cx_pkt_t* p) { return p->data.frame.sz; }
static int aom_pkt_is_key(const aom_codec_cx_pkt_t* p) { return (p->data.frame.flags & AOM_FRAME_IS_KEY) != 0; }
*/
import "C"

import (
	"errors"
	"unsafe"

	"imager/internal/yuv"
)

// AV1Encoder wraps a realtime libaom AV1 encoder for one frame size.
type AV1Encoder struct {
	ctx  C.aom_codec_ctx_t
	cfg  C.aom_codec_enc_cfg_t
	img  *C.aom_image_t
	w, h int
	pts  C.aom_codec_pts_t
	open bool
}

type AV1Config struct {
	Width, Height int
	FPS           int
	BitrateKbps   int
}

func NewAV1Encoder(cfg AV1Config) (*AV1Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, errors.New("invalid AV1 encoder config")
	}
	e := &AV1Encoder{w: cfg.Width, h: cfg.Height}
	if C.aom_codec_enc_config_default(C.aom_iface_av1(), &e.cfg, C.AOM_USAGE_REALTIME) != C.AOM_CODEC_OK {
		return nil, errors.New("aom_codec_enc_config_default failed")
	}
	e.cfg.g_w = C.uint(cfg.Width)
	e.cfg.g_h = C.uint(cfg.Height)
	e.cfg.g_timebase.num = 1
	e.cfg.g_timebase.den = C.int(cfg.FPS)
	if cfg.BitrateKbps > 0 {
		e.cfg.rc_target_bitrate = C.uint(cfg.BitrateKbps)
	}
	e.cfg.g_pass = C.AOM_RC_ONE_PASS
	e.cfg.g_threads = 4
	e.cfg.g_lag_in_frames = 0
	e.cfg.rc_end_usage = C.AOM_CBR
	e.cfg.kf_mode = C.AOM_KF_AUTO

	if C.aom_codec_enc_init_ver(&e.ctx, C.aom_iface_av1(), &e.cfg, 0, C.AOM_ENCODER_ABI_VERSION) != C.AOM_CODEC_OK {
		return nil, errors.New("aom_codec_enc_init_ver failed")
	}
	e.open = true
	_ = C.aom_set_int(&e.ctx, C.AOME_SET_CPUUSED, 8)
	_ = C.aom_set_int(&e.ctx, C.AOME_SET_ENABLEAUTOALTREF, 0)

	e.img = C.aom_img_alloc(nil, C.AOM_IMG_FMT_I420, C.uint(e.w), C.uint(e.h), 1)
	if e.img == nil {
		e.Close()
		return nil, errors.New("aom_img_alloc failed")
	}
	return e, nil
}

// Encode encodes one planar frame of the encoder's size.
func (e *AV1Encoder) Encode(frame *yuv.Image) (out [][]byte, keyframe bool, err error) {
	if !e.open {
		return nil, false, errors.New("encoder closed")
	}
	if frame.Width() != e.w || frame.Height() != e.h {
		return nil, false, errors.New("frame size differs from encoder")
	}
	copyPlane(unsafe.Pointer(e.img.planes[0]), int(e.img.stride[0]), frame.Y(), e.w, e.h)
	copyPlane(unsafe.Pointer(e.img.planes[1]), int(e.img.stride[1]), frame.U(), e.w/2, e.h/2)
	copyPlane(unsafe.Pointer(e.img.planes[2]), int(e.img.stride[2]), frame.V(), e.w/2, e.h/2)

	if C.aom_codec_encode(&e.ctx, e.img, e.pts, 1, 0) != C.AOM_CODEC_OK {
		return nil, false, errors.New("aom_codec_encode failed")
	}
	e.pts++

	var iter C.aom_codec_iter_t
	for {
		pkt := C.aom_codec_get_cx_data(&e.ctx, &iter)
		if pkt == nil {
			break
		}
		if C.aom_pkt_is_frame(pkt) == 0 {
			continue
		}
		out = append(out, C.GoBytes(C.aom_pkt_buf(pkt), C.int(C.aom_pkt_size(pkt))))
		keyframe = keyframe || C.aom_pkt_is_key(pkt) != 0
	}
	return out, keyframe, nil
}

func (e *AV1Encoder) Close() {
	if e.img != nil {
		C.aom_img_free(e.img)
		e.img = nil
	}
	if e.open {
		C.aom_codec_destroy(&e.ctx)
		e.open = false
	}
}
