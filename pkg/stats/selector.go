package stats

import (
	"github.com/pion/webrtc/v3"
)

const (
	fieldState                = "state"
	fieldCurrentRoundTripTime = "currentRoundTripTime"
)

// SelectCandidatePair returns the pair carrying media: the first succeeded
// pair, otherwise the first in-progress pair that already has an RTT sample.
func SelectCandidatePair(s *Snapshot) *Record {
	pairs := s.Records(webrtc.StatsTypeCandidatePair)
	for _, p := range pairs {
		if p.Get(fieldState).Equal(string(webrtc.StatsICECandidatePairStateSucceeded)) {
			return p
		}
	}
	for _, p := range pairs {
		if p.Get(fieldState).Equal(string(webrtc.StatsICECandidatePairStateInProgress)) &&
			!p.Get(fieldCurrentRoundTripTime).IsNA() {
			return p
		}
	}
	return nil
}

// SelectStream returns the first record of type t whose mediaType is kind.
func SelectStream(s *Snapshot, t webrtc.StatsType, kind webrtc.RTPCodecType) *Record {
	for _, r := range s.Records(t) {
		if r.Get(FieldMediaType).Equal(kind.String()) {
			return r
		}
	}
	return nil
}
