package arj

import "time"

// dosTime unpacks an ARJ timestamp: the DOS date in the high half, the DOS time in the low.
// Seconds are stored halved. ARJ records local time without a zone, so it is read as UTC.
func dosTime(stamp uint32) time.Time {
	field := func(shift, width uint) int { return int(stamp >> shift & (1<<width - 1)) }
	return time.Date(
		1980+field(25, 7), time.Month(field(21, 4)), field(16, 5),
		field(11, 5), field(5, 6), 2*field(0, 5), 0,
		time.UTC)
}
