// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/esfeeder
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"github.com/q191201771/esfeeder/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
	"github.com/q191201771/naza/pkg/nazaerrors"
)

// Context 从sps中解析出的信息
type Context struct {
	Profile uint8
	Level   uint8
	Width   uint32
	Height  uint32
}

// ISO-14496-10.pdf
// 7.3.2.1.1 Sequence parameter set data syntax
type Sps struct {
	ProfileIdc                  uint8
	ConstraintSetFlags          uint8
	LevelIdc                    uint8
	SpsId                       uint32
	ChromaFormatIdc             uint32
	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	NumRefFrames                uint32
	PicWidthInMbsMinusOne       uint32
	PicHeightInMapUnitsMinusOne uint32
	FrameMbsOnlyFlag            uint8
	FrameCroppingFlag           uint8
	FrameCropLeftOffset         uint32
	FrameCropRightOffset        uint32
	FrameCropTopOffset          uint32
	FrameCropBottomOffset       uint32
}

// ParseSps
//
// @param nal: sps nal unit，包含nal header，不包含start code
func ParseSps(nal []byte, ctx *Context) error {
	if len(nal) < 4 || ParseNaluType(nal[0]) != NaluTypeSps {
		return nazaerrors.Wrap(base.ErrAvc)
	}

	br := nazabits.NewBitReader(removeEmulationPrevention(nal[1:]))
	var sps Sps
	if err := parseSps(&br, &sps); err != nil {
		return err
	}

	ctx.Profile = sps.ProfileIdc
	ctx.Level = sps.LevelIdc
	ctx.Width = (sps.PicWidthInMbsMinusOne+1)*16 - (sps.FrameCropLeftOffset+sps.FrameCropRightOffset)*2
	ctx.Height = (2-uint32(sps.FrameMbsOnlyFlag))*(sps.PicHeightInMapUnitsMinusOne+1)*16 - (sps.FrameCropTopOffset+sps.FrameCropBottomOffset)*2
	return nil
}

func parseSps(br *nazabits.BitReader, sps *Sps) error {
	var err error
	if sps.ProfileIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.ConstraintSetFlags, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.LevelIdc, err = br.ReadBits8(8); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.SpsId, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.SpsId >= 32 {
		return nazaerrors.Wrap(base.ErrAvc)
	}

	sps.ChromaFormatIdc = 1
	if isHighProfile(sps.ProfileIdc) {
		if sps.ChromaFormatIdc, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
		if sps.ChromaFormatIdc > 3 {
			return nazaerrors.Wrap(base.ErrAvc)
		}
		if sps.ChromaFormatIdc == 3 {
			// separate_colour_plane_flag
			if _, err = br.ReadBits8(1); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		// bit_depth_luma_minus8, bit_depth_chroma_minus8
		for i := 0; i < 2; i++ {
			if _, err = br.ReadGolomb(); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		// qpprime_y_zero_transform_bypass_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
		flag, err := br.ReadBits8(1)
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		if flag == 1 {
			n := 8
			if sps.ChromaFormatIdc == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				present, err := br.ReadBits8(1)
				if err != nil {
					return nazaerrors.Wrap(err)
				}
				if present == 0 {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if err = skipScalingList(br, size); err != nil {
					return err
				}
			}
		}
	}

	if sps.Log2MaxFrameNumMinus4, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.Log2MaxFrameNumMinus4 > 12 {
		return nazaerrors.Wrap(base.ErrAvc)
	}
	if sps.PicOrderCntType, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	switch sps.PicOrderCntType {
	case 0:
		// log2_max_pic_order_cnt_lsb_minus4
		if _, err = br.ReadGolomb(); err != nil {
			return nazaerrors.Wrap(err)
		}
	case 1:
		// delta_pic_order_always_zero_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
		// offset_for_non_ref_pic, offset_for_top_to_bottom_field
		for i := 0; i < 2; i++ {
			if _, err = br.ReadGolomb(); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
		num, err := br.ReadGolomb()
		if err != nil {
			return nazaerrors.Wrap(err)
		}
		for i := uint32(0); i < num; i++ {
			if _, err = br.ReadGolomb(); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
	case 2:
	default:
		return nazaerrors.Wrap(base.ErrAvc)
	}

	if sps.NumRefFrames, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	// gaps_in_frame_num_value_allowed_flag
	if _, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.PicWidthInMbsMinusOne, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.PicHeightInMapUnitsMinusOne, err = br.ReadGolomb(); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameMbsOnlyFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameMbsOnlyFlag == 0 {
		// mb_adaptive_frame_field_flag
		if _, err = br.ReadBits8(1); err != nil {
			return nazaerrors.Wrap(err)
		}
	}
	// direct_8x8_inference_flag
	if _, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameCroppingFlag, err = br.ReadBits8(1); err != nil {
		return nazaerrors.Wrap(err)
	}
	if sps.FrameCroppingFlag == 1 {
		for _, p := range []*uint32{&sps.FrameCropLeftOffset, &sps.FrameCropRightOffset, &sps.FrameCropTopOffset, &sps.FrameCropBottomOffset} {
			if *p, err = br.ReadGolomb(); err != nil {
				return nazaerrors.Wrap(err)
			}
		}
	}

	// vui不解析
	return nil
}

func isHighProfile(profileIdc uint8) bool {
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		return true
	}
	return false
}

func skipScalingList(br *nazabits.BitReader, size int) error {
	lastScale := 8
	nextScale := 8
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			v, err := br.ReadGolomb()
			if err != nil {
				return nazaerrors.Wrap(err)
			}
			// se(v)
			delta := int(v+1) / 2
			if v%2 == 0 {
				delta = -int(v / 2)
			}
			nextScale = (lastScale + delta + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// 去除防竞争字节 0x000003 -> 0x0000
func removeEmulationPrevention(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, v := range b {
		if zeros >= 2 && v == 0x03 {
			zeros = 0
			continue
		}
		out = append(out, v)
		if v == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}
