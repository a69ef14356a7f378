// Package demux turns a raw MPEG transport stream into the packet records
// consumed by the timeline engine. It follows the program map to find the
// video and audio PIDs, carries the PES timestamp of each payload unit, and
// labels the first packet of every coded frame with its picture type (I, P,
// B, or V for a video frame of unknown type) or its audio ordinal.
//
// The central type is [Demuxer], a [trace.Source] over an [io.Reader].
// Picture typing is provided by [H264SliceFrame], [HEVCFrame] and
// [MPEG2PictureFrame] on top of [ParseAnnexB] and [ParseAnnexBHEVC].
package demux
