package wizard

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntomapa/puntomapa/pkg/core"
)

type fakeUploader struct {
	calls  []string // "<kind>:<filename>"
	bodies []string // received file content, per call
	fail   map[string]error
}

func (f *fakeUploader) Upload(_ context.Context, file io.Reader, filename string, kind string) (core.UploadResult, error) {
	f.calls = append(f.calls, kind+":"+filename)

	var body []byte
	if file != nil {
		body, _ = io.ReadAll(file)
	}
	f.bodies = append(f.bodies, string(body))

	if err, ok := f.fail[kind]; ok {
		return core.UploadResult{}, err
	}
	return core.UploadResult{URL: "http://media.local/" + kind + "/" + filename}, nil
}

type fakeSubmitter struct {
	created   []core.Draft
	updated   map[string]core.MarkerPatch
	createErr error
	block     chan struct{} // when set, CreateMarker waits until closed
}

func (f *fakeSubmitter) CreateMarker(_ context.Context, d core.Draft) (core.Marker, error) {
	if f.block != nil {
		<-f.block
	}
	if f.createErr != nil {
		return core.Marker{}, f.createErr
	}
	f.created = append(f.created, d)
	return core.Marker{
		ID:          "m-1",
		Location:    *d.Location,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Image:       d.Image,
		Audio:       d.Audio,
	}, nil
}

func (f *fakeSubmitter) UpdateMarker(_ context.Context, id string, p core.MarkerPatch) (core.Marker, error) {
	if f.updated == nil {
		f.updated = make(map[string]core.MarkerPatch)
	}
	f.updated[id] = p
	m := core.Marker{ID: id}
	if p.Location != nil {
		m.Location = *p.Location
	}
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	return m, nil
}

func newReadyWizard(t *testing.T, cfg Config, up *fakeUploader, sub *fakeSubmitter) *Wizard {
	t.Helper()

	w := New(cfg, up, sub)
	require.NoError(t, w.RecordCoordinate(-26.185512345678901, -58.172987654321098))
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetInfo("Estación Formosa", "Antigua estación de tren"))
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.NoError(t, w.SelectCategory(core.CategoryFerrocarril))
	return w
}

func TestAdvance_GatedOnLocation(t *testing.T) {
	w := New(Config{}, &fakeUploader{}, &fakeSubmitter{})

	err := w.Advance()
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "location", ve.Field)
	assert.Equal(t, core.StepLocation, w.CurrentStep())

	require.NoError(t, w.RecordCoordinate(1.5, 2.5))
	require.NoError(t, w.Advance())
	assert.Equal(t, core.StepInfo, w.CurrentStep())
}

func TestAdvance_GatedOnInfo(t *testing.T) {
	w := New(Config{}, &fakeUploader{}, &fakeSubmitter{})
	require.NoError(t, w.RecordCoordinate(1, 2))
	require.NoError(t, w.Advance())

	var ve *core.ValidationError
	require.ErrorAs(t, w.Advance(), &ve)
	assert.Equal(t, "name", ve.Field)

	require.NoError(t, w.SetInfo("Museo", "   "))
	require.ErrorAs(t, w.Advance(), &ve)
	assert.Equal(t, "description", ve.Field)

	require.NoError(t, w.SetInfo("Museo", "Histórico"))
	require.NoError(t, w.Advance())
	assert.Equal(t, core.StepMedia, w.CurrentStep())
}

func TestAdvance_MediaStepIsOptional(t *testing.T) {
	w := New(Config{}, &fakeUploader{}, &fakeSubmitter{})
	require.NoError(t, w.RecordCoordinate(1, 2))
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetInfo("a", "b"))
	require.NoError(t, w.Advance())

	require.NoError(t, w.Advance())
	assert.Equal(t, core.StepCategory, w.CurrentStep())

	assert.ErrorIs(t, w.Advance(), ErrAtFinalStep)
}

func TestRetreat_IsLossless(t *testing.T) {
	w := newReadyWizard(t, Config{}, &fakeUploader{}, &fakeSubmitter{})

	require.NoError(t, w.Retreat())
	require.NoError(t, w.Retreat())
	require.NoError(t, w.Retreat())
	assert.Equal(t, core.StepLocation, w.CurrentStep())

	// at the first step Retreat is a no-op
	require.NoError(t, w.Retreat())
	assert.Equal(t, core.StepLocation, w.CurrentStep())

	// nothing was cleared, the same draft submits after advancing back
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	_, err := w.Submit(context.Background())
	require.NoError(t, err)
}

func TestRecordCoordinate_OverwritesAtAnyStep(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newReadyWizard(t, Config{}, &fakeUploader{}, sub)

	// still at the category step, a late map click wins
	require.NoError(t, w.RecordCoordinate(-26.1855, -58.1729))

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, sub.created, 1)
	assert.Equal(t, -26.1855, sub.created[0].Location.Lat)
	assert.Equal(t, -58.1729, sub.created[0].Location.Lng)
}

func TestSubmit_OnlyAtFinalStep(t *testing.T) {
	w := New(Config{}, &fakeUploader{}, &fakeSubmitter{})
	require.NoError(t, w.RecordCoordinate(1, 2))

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotAtFinalStep)
}

func TestSubmit_UploadsImageThenAudio(t *testing.T) {
	up := &fakeUploader{}
	sub := &fakeSubmitter{}
	w := newReadyWizard(t, Config{}, up, sub)

	require.NoError(t, w.AttachImage("estacion.jpg", strings.NewReader("img")))
	require.NoError(t, w.AttachAudio("relato.mp3", strings.NewReader("aud")))

	m, err := w.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"image:estacion.jpg", "audio:relato.mp3"}, up.calls)
	assert.Equal(t, "http://media.local/image/estacion.jpg", m.Image)
	assert.Equal(t, "http://media.local/audio/relato.mp3", m.Audio)
}

func TestSubmit_AudioFailureKeepsDraftOpen(t *testing.T) {
	uploadErr := errors.New("bucket unreachable")
	up := &fakeUploader{fail: map[string]error{"audio": uploadErr}}
	sub := &fakeSubmitter{}
	w := newReadyWizard(t, Config{}, up, sub)

	// one-shot readers: only the wizard's own buffering makes retry possible
	require.NoError(t, w.AttachImage("a.jpg", onceReader("IMAGE-BYTES")))
	require.NoError(t, w.AttachAudio("b.mp3", onceReader("AUDIO-BYTES")))

	_, err := w.Submit(context.Background())
	require.ErrorIs(t, err, uploadErr)

	// nothing persisted, wizard still open at the final step with the error kept
	assert.Empty(t, sub.created)
	assert.Equal(t, core.StepCategory, w.CurrentStep())
	assert.ErrorIs(t, w.SubmitErr(), uploadErr)

	// a retry is allowed, clears the retained error, and re-sends the full
	// file bodies even though the first attempt already consumed them
	up.fail = nil
	m, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.NoError(t, w.SubmitErr())

	require.Len(t, up.bodies, 4)
	assert.Equal(t, []string{"IMAGE-BYTES", "AUDIO-BYTES", "IMAGE-BYTES", "AUDIO-BYTES"}, up.bodies)
	assert.Equal(t, "http://media.local/image/a.jpg", m.Image)
	assert.Equal(t, "http://media.local/audio/b.mp3", m.Audio)
}

// onceReader yields a stream that cannot be rewound by the consumer.
func onceReader(s string) io.Reader {
	return io.LimitReader(strings.NewReader(s), int64(len(s)))
}

func TestSubmit_RequireMedia(t *testing.T) {
	w := newReadyWizard(t, Config{RequireMedia: true}, &fakeUploader{}, &fakeSubmitter{})

	var ve *core.ValidationError
	_, err := w.Submit(context.Background())
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "image", ve.Field)

	require.NoError(t, w.AttachImage("a.jpg", strings.NewReader("x")))
	_, err = w.Submit(context.Background())
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "audio", ve.Field)

	require.NoError(t, w.AttachAudio("b.mp3", strings.NewReader("y")))
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
}

func TestSubmit_ValidationRunsBeforeUploads(t *testing.T) {
	up := &fakeUploader{}
	w := New(Config{}, up, &fakeSubmitter{})
	require.NoError(t, w.RecordCoordinate(1, 2))
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetInfo("a", "b"))
	require.NoError(t, w.Advance())
	require.NoError(t, w.AttachImage("a.jpg", strings.NewReader("x")))
	require.NoError(t, w.Advance())
	// category never selected

	var ve *core.ValidationError
	_, err := w.Submit(context.Background())
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category", ve.Field)
	assert.Empty(t, up.calls)
}

func TestSubmit_SecondWhileInFlightRejected(t *testing.T) {
	sub := &fakeSubmitter{block: make(chan struct{})}
	w := newReadyWizard(t, Config{}, &fakeUploader{}, sub)

	firstDone := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		firstDone <- err
	}()

	// wait for the first submit to take the in-flight slot
	require.Eventually(t, func() bool {
		_, err := w.Submit(context.Background())
		return errors.Is(err, ErrSubmitInFlight)
	}, 2*time.Second, 10*time.Millisecond)

	close(sub.block)
	require.NoError(t, <-firstDone)
	assert.Len(t, sub.created, 1)
}

func TestSubmit_SuccessClosesWizard(t *testing.T) {
	w := newReadyWizard(t, Config{}, &fakeUploader{}, &fakeSubmitter{})

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, w.CurrentStep())
	assert.ErrorIs(t, w.RecordCoordinate(1, 2), ErrClosed)
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_DiscardsDraft(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newReadyWizard(t, Config{}, &fakeUploader{}, sub)

	w.Close()

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, sub.created)
}

func TestEditMode_PreservesStoredMediaAndUpdates(t *testing.T) {
	sub := &fakeSubmitter{}
	existing := core.Marker{
		ID:          "m-42",
		Location:    core.Location{Lat: -26.1855, Lng: -58.1729},
		Name:        "Mástil",
		Description: "Histórico",
		Category:    core.CategoryMastil,
		Image:       "http://media.local/image/old.jpg",
		Audio:       "http://media.local/audio/old.mp3",
	}
	w := NewFromMarker(Config{}, &fakeUploader{}, sub, existing)

	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.NoError(t, w.SelectCategory(core.CategoryMonumento))

	m, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m-42", m.ID)

	patch := sub.updated["m-42"]
	require.NotNil(t, patch.Image)
	require.NotNil(t, patch.Audio)
	assert.Equal(t, existing.Image, *patch.Image)
	assert.Equal(t, existing.Audio, *patch.Audio)
	require.NotNil(t, patch.Category)
	assert.Equal(t, core.CategoryMonumento, *patch.Category)
}

func TestPrecisionSurvivesSubmit(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newReadyWizard(t, Config{}, &fakeUploader{}, sub)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, sub.created, 1)
	assert.Equal(t, -26.185512345678901, sub.created[0].Location.Lat)
	assert.Equal(t, -58.172987654321098, sub.created[0].Location.Lng)
}
