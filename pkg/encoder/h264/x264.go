// Package h264 implements cgo bindings for [x264](https://www.videolan.org/developers/x264.html) library.
package h264

/*
#cgo !st pkg-config: x264
#cgo st LDFLAGS: -l:libx264.a

#include "stdint.h"
#include "x264.h"
#include <stdlib.h>

typedef struct
{
	x264_t *h;
	x264_nal_t *nal; // array of NALs
	int i_nal;       // number of NALs
	int y;           // Y size
	int uv;          // U or V size
	x264_picture_t pic;
	x264_picture_t pic_out;
} h264;

h264 *h264_new(x264_param_t *param)
{
	h264 tmp;
	x264_picture_t pic;

	tmp.h = x264_encoder_open(param);
	if (!tmp.h)
		return NULL;

	x264_picture_init(&pic);
	pic.img.i_csp = param->i_csp;
	pic.img.i_plane = 3;
	pic.img.i_stride[0] = param->i_width;
	pic.img.i_stride[1] = param->i_width >> 1;
	pic.img.i_stride[2] = param->i_width >> 1;
	tmp.pic = pic;

	tmp.y = param->i_width * param->i_height;
	tmp.uv = tmp.y >> 2;

	h264 *h = malloc(sizeof(h264));
	*h = tmp;
	return h;
}

int h264_encode(h264 *h, uint8_t *yuv)
{
	h->pic.img.plane[0] = yuv;
	h->pic.img.plane[1] = h->pic.img.plane[0] + h->y;
	h->pic.img.plane[2] = h->pic.img.plane[1] + h->uv;
	h->pic.i_pts += 1;
	return x264_encoder_encode(h->h, &h->nal, &h->i_nal, &h->pic, &h->pic_out);
}

void h264_force_idr(h264 *h)
{
	h->pic.i_type = X264_TYPE_IDR;
}

void h264_clear_type(h264 *h)
{
	h->pic.i_type = X264_TYPE_AUTO;
}

void h264_destroy(h264 *h)
{
	if (h == NULL) return;
	x264_encoder_close(h->h);
	free(h);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type H264 struct {
	h   *C.h264
	in  []byte
	idr bool
}

func NewEncoder(w, h int, opts *Options) (*H264, error) {
	ver := Version()
	if ver < 150 {
		return nil, fmt.Errorf("x264: the library version should be newer than v150, you have got version %v", ver)
	}

	if opts == nil {
		opts = &Options{
			Crf:     23,
			Tune:    "zerolatency",
			Preset:  "superfast",
			Profile: "baseline",
		}
	}

	param := C.x264_param_t{}

	if opts.Preset != "" && opts.Tune != "" {
		preset := C.CString(opts.Preset)
		tune := C.CString(opts.Tune)
		defer C.free(unsafe.Pointer(preset))
		defer C.free(unsafe.Pointer(tune))
		if C.x264_param_default_preset(&param, preset, tune) < 0 {
			return nil, fmt.Errorf("x264: invalid preset/tune name")
		}
	} else {
		C.x264_param_default(&param)
	}

	if opts.Profile != "" {
		profile := C.CString(opts.Profile)
		defer C.free(unsafe.Pointer(profile))
		if C.x264_param_apply_profile(&param, profile) < 0 {
			return nil, fmt.Errorf("x264: invalid profile name")
		}
	}

	param.i_bitdepth = 8
	param.i_csp = C.X264_CSP_I420
	param.i_width = C.int(w)
	param.i_height = C.int(h)
	param.i_log_level = C.int(opts.LogLevel)
	param.i_keyint_max = 120
	param.i_sync_lookahead = 0
	param.i_threads = 1
	param.b_repeat_headers = 1
	param.b_annexb = 1

	param.rc.i_rc_method = C.X264_RC_CRF
	param.rc.f_rf_constant = C.float(opts.Crf)

	h264 := C.h264_new(&param)
	if h264 == nil {
		return nil, fmt.Errorf("x264: cannot open the encoder")
	}
	return &H264{h: h264}, nil
}

func (e *H264) LoadBuf(input []byte) { e.in = input }

func (e *H264) Encode() []byte {
	if e.idr {
		C.h264_force_idr(e.h)
		e.idr = false
	} else {
		C.h264_clear_type(e.h)
	}
	bytes := C.h264_encode(e.h, (*C.uchar)(unsafe.SliceData(e.in)))
	if bytes <= 0 {
		return nil
	}
	// NALs are laid out back to back starting at the first payload
	return unsafe.Slice((*byte)(e.h.nal.p_payload), bytes)
}

// IntraRefresh makes the next encoded frame an IDR so a fresh viewer
// can decode from it.
func (e *H264) IntraRefresh() { e.idr = true }

func (e *H264) SetFlip(b bool) {
	if b {
		(*e.h).pic.img.i_csp |= C.X264_CSP_VFLIP
	} else {
		(*e.h).pic.img.i_csp &= ^C.int(C.X264_CSP_VFLIP)
	}
}

func (e *H264) Shutdown() error {
	if e.h != nil {
		C.h264_destroy(e.h)
	}
	return nil
}

func Version() int { return int(C.X264_BUILD) }
