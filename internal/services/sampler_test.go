package services

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/radiq/radiq-backend/internal/platform/apierr"
	"github.com/radiq/radiq-backend/internal/platform/logger"
	"github.com/radiq/radiq-backend/internal/types"
)

func newTestSampler(t *testing.T, seed int64) *samplerService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc := NewSamplerService(nil, log, nil, nil, nil, "http://localhost:8042/dicom-web", rand.New(rand.NewSource(seed)))
	return svc.(*samplerService)
}

func dicomImage(seriesUID string, instanceNumber int) *types.ImageAsset {
	studyUID := "1.2.840.9999"
	sopUID := uuid.NewString()
	return &types.ImageAsset{
		ID:                uuid.New(),
		Filename:          "img.dcm",
		StorageURI:        "orthanc://" + sopUID,
		Format:            types.ImageFormatDICOM,
		StudyInstanceUID:  &studyUID,
		SeriesInstanceUID: &seriesUID,
		SOPInstanceUID:    &sopUID,
		InstanceNumber:    &instanceNumber,
	}
}

func TestSamplePairSameSeriesDistinctSides(t *testing.T) {
	sampler := newTestSampler(t, 1)
	images := []*types.ImageAsset{
		dicomImage("1.2.3.1", 1),
		dicomImage("1.2.3.1", 2),
		dicomImage("1.2.3.2", 1),
		dicomImage("1.2.3.2", 2),
		dicomImage("1.2.3.2", 3),
	}

	for i := 0; i < 200; i++ {
		left, right, err := sampler.samplePair(images)
		if err != nil {
			t.Fatalf("samplePair: %v", err)
		}
		if left.ID == right.ID {
			t.Fatalf("drew the same image on both sides: %s", left.ID)
		}
		if *left.SeriesInstanceUID != *right.SeriesInstanceUID {
			t.Fatalf("cross-series pair: %s vs %s", *left.SeriesInstanceUID, *right.SeriesInstanceUID)
		}
	}
}

func TestSamplePairTwoImagePool(t *testing.T) {
	sampler := newTestSampler(t, 7)
	images := []*types.ImageAsset{
		dicomImage("1.2.3.1", 1),
		dicomImage("1.2.3.1", 2),
	}

	// The only legal draw is the one unordered pair; resampling must
	// terminate on it every time.
	for i := 0; i < 50; i++ {
		left, right, err := sampler.samplePair(images)
		if err != nil {
			t.Fatalf("samplePair: %v", err)
		}
		if left.ID == right.ID {
			t.Fatalf("drew the same image on both sides: %s", left.ID)
		}
	}
}

func TestSamplePairAllSingletonSeries(t *testing.T) {
	sampler := newTestSampler(t, 3)
	images := []*types.ImageAsset{
		dicomImage("1.2.3.1", 1),
		dicomImage("1.2.3.2", 1),
		dicomImage("1.2.3.3", 1),
	}

	_, _, err := sampler.samplePair(images)
	if !apierr.IsCode(err, apierr.CodeInsufficientPool) {
		t.Fatalf("want insufficient_pool, got %v", err)
	}
}

func TestSamplePairSkipsNonReadyImages(t *testing.T) {
	sampler := newTestSampler(t, 5)

	// One DICOM-complete image plus a legacy PNG row in the same series:
	// the PNG is invisible to the sampler, so the series is a singleton.
	ready := dicomImage("1.2.3.1", 1)
	legacy := dicomImage("1.2.3.1", 2)
	legacy.Format = "PNG"

	_, _, err := sampler.samplePair([]*types.ImageAsset{ready, legacy})
	if !apierr.IsCode(err, apierr.CodeInsufficientPool) {
		t.Fatalf("want insufficient_pool, got %v", err)
	}
}

func TestSamplePairEmptyPool(t *testing.T) {
	sampler := newTestSampler(t, 9)
	_, _, err := sampler.samplePair(nil)
	if !apierr.IsCode(err, apierr.CodeInsufficientPool) {
		t.Fatalf("want insufficient_pool, got %v", err)
	}
}
