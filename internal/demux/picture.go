package demux

import "github.com/zsiec/tsgop/internal/trace"

// Each picture typer inspects the elementary stream bytes gathered from the
// start of a video payload unit. It returns false while the bytes seen so far
// do not yet reach the first picture or slice header.

// H264SliceFrame types an H.264 access unit by its first slice: an IDR slice
// is I, otherwise slice_type selects I, P or B (SI counts as I, SP as P).
func H264SliceFrame(es []byte) (trace.Frame, bool) {
	for _, nal := range ParseAnnexB(es) {
		switch nal.Type {
		case NALTypeIDR:
			return trace.Intra, true
		case NALTypeSlice, NALTypeSliceDataA:
			st, err := sliceType(nal.Data)
			if err != nil {
				return trace.Frame{}, false
			}
			switch st % 5 {
			case 0, 3:
				return trace.Predicted, true
			case 1:
				return trace.Bidirectional, true
			default:
				return trace.Intra, true
			}
		}
	}
	return trace.Frame{}, false
}

// sliceType reads slice_type from the slice header that follows the NAL
// header byte.
func sliceType(nalu []byte) (uint, error) {
	if len(nalu) < 2 {
		return 0, errShortNAL
	}
	br := newBitReader(removeEmulationPrevention(nalu[1:]))
	if _, err := br.readUE(); err != nil { // first_mb_in_slice
		return 0, err
	}
	return br.readUE()
}

// HEVCFrame types an H.265 access unit by its first VCL NAL unit: intra
// random access points are I, every other picture is V.
func HEVCFrame(es []byte) (trace.Frame, bool) {
	for _, nal := range ParseAnnexBHEVC(es) {
		if nal.Type > HEVCNALVCLMax {
			continue
		}
		if IsHEVCKeyframe(nal.Type) {
			return trace.Intra, true
		}
		return trace.GenericVideo, true
	}
	return trace.Frame{}, false
}

// MPEG2PictureFrame types an MPEG-1/2 video access unit by the
// picture_coding_type of its picture header.
func MPEG2PictureFrame(es []byte) (trace.Frame, bool) {
	for i := 0; i+5 < len(es); i++ {
		if es[i] != 0 || es[i+1] != 0 || es[i+2] != 1 || es[i+3] != 0x00 {
			continue
		}
		// temporal_reference(10) picture_coding_type(3)
		switch (es[i+5] >> 3) & 0x07 {
		case 1:
			return trace.Intra, true
		case 2:
			return trace.Predicted, true
		case 3:
			return trace.Bidirectional, true
		default:
			return trace.GenericVideo, true
		}
	}
	return trace.Frame{}, false
}
