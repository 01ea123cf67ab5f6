package viamcartographer

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestSensorName(t *testing.T) {
	sensors := []string{"lidar", "movement_sensor"}

	test.That(t, sensorName(sensors, 0), test.ShouldEqual, "lidar")
	test.That(t, sensorName(sensors, 1), test.ShouldEqual, "movement_sensor")
	test.That(t, sensorName(sensors, 2), test.ShouldEqual, "")
	test.That(t, sensorName(nil, 0), test.ShouldEqual, "")
}

func TestInternalStateJSON(t *testing.T) {
	points := []r3.Vector{{X: 1, Y: 2}, {X: -3, Y: 4}}

	b, err := internalStateJSON(points)
	test.That(t, err, test.ShouldBeNil)

	var decoded struct {
		OccupiedCells []internalStateCell `json:"occupied_cells"`
	}
	test.That(t, json.Unmarshal(b, &decoded), test.ShouldBeNil)
	test.That(t, decoded.OccupiedCells, test.ShouldResemble, []internalStateCell{{X: 1, Y: 2}, {X: -3, Y: 4}})
}

func TestToChunkedFunc(t *testing.T) {
	data := make([]byte, chunkSizeBytes+10)
	for i := range data {
		data[i] = byte(i)
	}

	readChunk := toChunkedFunc(data)

	var reconstructed []byte
	for {
		chunk, err := readChunk()
		if err == io.EOF {
			break
		}
		test.That(t, err, test.ShouldBeNil)
		reconstructed = append(reconstructed, chunk...)
	}
	test.That(t, reconstructed, test.ShouldResemble, data)
}
