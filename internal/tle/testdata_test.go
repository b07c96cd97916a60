package tle

import (
	"io"
	"log/slog"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	targetLine1 = "1 44078U 19072A   25237.00127315  .00000014  00000-0  40313-4 0  1239"
	targetLine2 = "2 44078  98.2808 291.9629 0018719  34.1424  38.1671 14.43768520337337"

	issLine1 = "1 25544U 98067A   25138.37048074  .00007749  00000+0  14567-3 0  9994"
	issLine2 = "2 25544  51.6369  94.7823 0002558 120.7586  15.7840 15.49587957510533"
)

const catalog = "TARGETSAT\n" + targetLine1 + "\n" + targetLine2 + "\n" +
	"ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"
