// Package builderqueue serializes concurrent calls into a localtrajectory
// Builder through a single background goroutine and a request/response
// channel, since the builder itself is not safe for concurrent use.
package builderqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.uber.org/multierr"

	"github.com/viam-modules/local-trajectory-builder/localtrajectory"
	"github.com/viam-modules/local-trajectory-builder/rangedata"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// requestType identifies which Builder method a request should invoke.
type requestType int64

const (
	requestAddIMU requestType = iota
	requestAddOdometer
	requestAddHorizontalRange
	requestPoseEstimate
	requestOccupiedMapPoints
)

type addIMUParams struct {
	time                time.Time
	linearAcceleration  r3.Vector
	angularVelocity     r3.Vector
	absoluteOrientation *quat.Number
}

type addOdometerParams struct {
	time    time.Time
	rawPose transform.Rigid3
}

type addHorizontalRangeParams struct {
	time time.Time
	data rangedata.RangeData
}

type occupiedMapPointsParams struct {
	threshold float64
}

type response struct {
	result interface{}
	err    error
}

type request struct {
	requestType  requestType
	params       interface{}
	responseChan chan response
}

// Queue serializes calls into a localtrajectory.Builder through a single
// background goroutine.
type Queue struct {
	builder     *localtrajectory.Builder
	requestChan chan request
}

// New constructs a Queue wrapping builder. Start must be called before any
// request is issued.
func New(builder *localtrajectory.Builder) *Queue {
	return &Queue{
		builder:     builder,
		requestChan: make(chan request),
	}
}

// Start launches the background worker goroutine that drains requestChan and
// calls into the wrapped builder, one request at a time. Start itself returns
// immediately; the worker exits once ctx is canceled, signaling
// activeBackgroundWorkers.Done().
func (q *Queue) Start(ctx context.Context, activeBackgroundWorkers *sync.WaitGroup) {
	activeBackgroundWorkers.Add(1)
	go func() {
		defer activeBackgroundWorkers.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-q.requestChan:
				req.responseChan <- q.doWork(req)
			}
		}
	}()
}

func (q *Queue) doWork(req request) response {
	switch req.requestType {
	case requestAddIMU:
		p := req.params.(addIMUParams)
		q.builder.AddIMU(p.time, p.linearAcceleration, p.angularVelocity, p.absoluteOrientation)
		return response{}
	case requestAddOdometer:
		p := req.params.(addOdometerParams)
		q.builder.AddOdometer(p.time, p.rawPose)
		return response{}
	case requestAddHorizontalRange:
		p := req.params.(addHorizontalRangeParams)
		return response{result: q.builder.AddHorizontalRange(p.time, p.data)}
	case requestPoseEstimate:
		return response{result: q.builder.PoseEstimate()}
	case requestOccupiedMapPoints:
		p := req.params.(occupiedMapPointsParams)
		return response{result: q.builder.OccupiedMapPoints(p.threshold)}
	}
	return response{err: errors.New("builderqueue: unknown request type")}
}

func (q *Queue) do(ctx context.Context, timeout time.Duration, rt requestType, params interface{}) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := request{
		requestType:  rt,
		params:       params,
		responseChan: make(chan response, 1),
	}

	select {
	case q.requestChan <- req:
		select {
		case resp := <-req.responseChan:
			return resp.result, resp.err
		case <-ctx.Done():
			return nil, multierr.Combine(errors.New("timeout reading from local trajectory builder"), ctx.Err())
		}
	case <-ctx.Done():
		return nil, multierr.Combine(errors.New("timeout writing to local trajectory builder"), ctx.Err())
	}
}

// AddIMU serializes an AddIMU call into the wrapped builder.
func (q *Queue) AddIMU(
	ctx context.Context,
	timeout time.Duration,
	t time.Time,
	linearAcceleration, angularVelocity r3.Vector,
	absoluteOrientation *quat.Number,
) error {
	_, err := q.do(ctx, timeout, requestAddIMU, addIMUParams{
		time:                t,
		linearAcceleration:  linearAcceleration,
		angularVelocity:     angularVelocity,
		absoluteOrientation: absoluteOrientation,
	})
	return err
}

// AddOdometer serializes an AddOdometer call into the wrapped builder.
func (q *Queue) AddOdometer(ctx context.Context, timeout time.Duration, t time.Time, rawPose transform.Rigid3) error {
	_, err := q.do(ctx, timeout, requestAddOdometer, addOdometerParams{time: t, rawPose: rawPose})
	return err
}

// AddHorizontalRange serializes an AddHorizontalRange call into the wrapped
// builder.
func (q *Queue) AddHorizontalRange(
	ctx context.Context,
	timeout time.Duration,
	t time.Time,
	data rangedata.RangeData,
) (*localtrajectory.InsertionResult, error) {
	untyped, err := q.do(ctx, timeout, requestAddHorizontalRange, addHorizontalRangeParams{time: t, data: data})
	if err != nil {
		return nil, err
	}
	result, _ := untyped.(*localtrajectory.InsertionResult)
	return result, nil
}

// PoseEstimate serializes a PoseEstimate read from the wrapped builder.
func (q *Queue) PoseEstimate(ctx context.Context, timeout time.Duration) (localtrajectory.PoseEstimateResult, error) {
	untyped, err := q.do(ctx, timeout, requestPoseEstimate, nil)
	if err != nil {
		return localtrajectory.PoseEstimateResult{}, err
	}
	result, ok := untyped.(localtrajectory.PoseEstimateResult)
	if !ok {
		return localtrajectory.PoseEstimateResult{}, errors.New("builderqueue: unable to cast response to PoseEstimateResult")
	}
	return result, nil
}

// OccupiedMapPoints serializes a read of the occupied cells across the
// active submap pair from the wrapped builder.
func (q *Queue) OccupiedMapPoints(ctx context.Context, timeout time.Duration, threshold float64) ([]r3.Vector, error) {
	untyped, err := q.do(ctx, timeout, requestOccupiedMapPoints, occupiedMapPointsParams{threshold: threshold})
	if err != nil {
		return nil, err
	}
	points, _ := untyped.([]r3.Vector)
	return points, nil
}
