package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"screenflow/internal/domain"
	"screenflow/internal/stage"
	"screenflow/internal/uploads"
)

func TestScreeningFlowHappyPath(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{})

	if err := controller.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := controller.Next(); err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if err := controller.ContinueToChat(); !errors.Is(err, stage.ErrResumeRequired) {
		t.Fatalf("expected resume required, got %v", err)
	}
	if err := controller.SetFile(domain.FileResume, "resume.pdf"); err != nil {
		t.Fatalf("set resume failed: %v", err)
	}
	if err := controller.ContinueToChat(); err != nil {
		t.Fatalf("continue failed: %v", err)
	}

	snapshot := controller.Snapshot()
	if snapshot.Stage != domain.StageChat {
		t.Fatalf("expected chat stage, got %q", snapshot.Stage)
	}
	if len(snapshot.Transcript) != 1 || snapshot.Transcript[0].Sender != domain.SenderAssistant {
		t.Fatalf("expected opening assistant message, got %+v", snapshot.Transcript)
	}
	if snapshot.Transcript[0].Text != DefaultPrompts[0] {
		t.Fatalf("unexpected opening message: %q", snapshot.Transcript[0].Text)
	}

	if err := controller.Finish(); !errors.Is(err, stage.ErrConversationIncomplete) {
		t.Fatalf("expected incomplete conversation, got %v", err)
	}

	if err := controller.SendMessage("  I have used NX for years.  "); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	messages := controller.Snapshot().Transcript
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[1].Sender != domain.SenderUser || messages[1].Text != "I have used NX for years." {
		t.Fatalf("unexpected user message: %+v", messages[1])
	}
	if messages[2].Text != ClosingMessage {
		t.Fatalf("expected closing message, got %q", messages[2].Text)
	}
	if !controller.ReadyToAdvance() {
		t.Fatalf("expected ready to advance")
	}
	if controller.IsProcessing() {
		t.Fatalf("expected processing to be cleared")
	}
	if err := controller.SendMessage("one more"); !errors.Is(err, ErrConversationDone) {
		t.Fatalf("expected conversation done, got %v", err)
	}

	if err := controller.Finish(); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if err := controller.Back(); !errors.Is(err, stage.ErrRejected) {
		t.Fatalf("expected back from completion to be rejected, got %v", err)
	}
	if err := controller.Submit(); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if got := events.closedStages(); len(got) != 1 || got[0] != domain.StageSubmitted {
		t.Fatalf("expected flow closed as submitted, got %v", got)
	}
	snapshot = controller.Snapshot()
	if snapshot.Stage != domain.StageInitial || len(snapshot.Transcript) != 0 || snapshot.Uploads.Resume != "" {
		t.Fatalf("expected fresh session after submit, got %+v", snapshot)
	}
	if snapshot.ReadyToAdvance {
		t.Fatalf("expected readiness to be cleared")
	}

	stages := events.stageList()
	want := []domain.Stage{domain.StageGuidance, domain.StageUpload, domain.StageChat, domain.StageCompletion, domain.StageInitial}
	if len(stages) != len(want) {
		t.Fatalf("unexpected stage events: %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("unexpected stage events: %v", stages)
		}
	}
}

func TestScriptedRepliesFollowCursor(t *testing.T) {
	t.Parallel()

	script := NewScript([]string{"first?", "second?", "third?"}, "bye")
	controller := newTestController(t, nil, nil, Config{Script: script, Completion: AfterScript(script)})
	enterChat(t, controller)

	for _, answer := range []string{"a", "b"} {
		if err := controller.SendMessage(answer); err != nil {
			t.Fatalf("send %q failed: %v", answer, err)
		}
		if controller.ReadyToAdvance() {
			t.Fatalf("conversation completed early after %q", answer)
		}
	}
	if err := controller.SendMessage("c"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	messages := controller.Snapshot().Transcript
	want := []struct {
		sender domain.Sender
		text   string
	}{
		{domain.SenderAssistant, "first?"},
		{domain.SenderUser, "a"},
		{domain.SenderAssistant, "second?"},
		{domain.SenderUser, "b"},
		{domain.SenderAssistant, "third?"},
		{domain.SenderUser, "c"},
		{domain.SenderAssistant, ClosingMessage},
	}
	if len(messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(messages))
	}
	for i, message := range messages {
		if message.Sender != want[i].sender || message.Text != want[i].text {
			t.Fatalf("message %d: got %s %q, want %s %q", i, message.Sender, message.Text, want[i].sender, want[i].text)
		}
	}
	if !controller.ReadyToAdvance() {
		t.Fatalf("expected ready after the script was answered")
	}
}

func TestSendMessageRejectsWhileProcessing(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{ThinkMin: 80 * time.Millisecond, ThinkMax: 80 * time.Millisecond})
	enterChat(t, controller)

	done := make(chan error, 1)
	go func() { done <- controller.SendMessage("first") }()

	waitFor(t, controller.IsProcessing)
	if err := controller.SendMessage("second"); !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
	if err := controller.StartDictation(context.Background()); !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected dictation to be blocked while processing, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	if got := len(controller.Snapshot().Transcript); got != 3 {
		t.Fatalf("expected only one exchange, got %d messages", got)
	}
	if got := events.processingList(); len(got) < 2 || !got[0] || got[1] {
		t.Fatalf("expected processing true then false, got %v", got)
	}
}

func TestEveryUserMessageGetsAReply(t *testing.T) {
	t.Parallel()

	script := NewScript([]string{"one?", "two?", "three?", "four?"}, "bye")
	controller := newTestController(t, nil, nil, Config{
		Script:     script,
		Completion: AfterScript(script),
		ThinkMin:   30 * time.Millisecond,
		ThinkMax:   30 * time.Millisecond,
	})
	enterChat(t, controller)

	for _, answer := range []string{"a", "b", "c"} {
		done := make(chan error, 1)
		go func() { done <- controller.SendMessage(answer) }()
		waitFor(t, controller.IsProcessing)

		if err := controller.SendMessage("interrupting"); !errors.Is(err, ErrProcessing) {
			t.Fatalf("expected processing error, got %v", err)
		}
		if err := <-done; err != nil {
			t.Fatalf("send %q failed: %v", answer, err)
		}
	}

	messages := controller.Snapshot().Transcript
	if len(messages) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(messages))
	}
	for i, message := range messages {
		want := domain.SenderAssistant
		if i%2 == 1 {
			want = domain.SenderUser
		}
		if message.Sender != want {
			t.Fatalf("alternation broken at %d: %+v", i, messages)
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, nil, nil, Config{})
	if err := controller.SendMessage("hello"); !errors.Is(err, ErrNotInChat) {
		t.Fatalf("expected not in chat, got %v", err)
	}

	enterChat(t, controller)
	if err := controller.SendMessage("   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected empty message error, got %v", err)
	}
	if got := len(controller.Snapshot().Transcript); got != 1 {
		t.Fatalf("expected no messages appended, got %d", got)
	}
}

func TestResetDuringThinkingDropsReply(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, nil, nil, Config{ThinkMin: 1500 * time.Millisecond, ThinkMax: 1500 * time.Millisecond})
	enterChat(t, controller)

	done := make(chan error, 1)
	go func() { done <- controller.SendMessage("hello") }()
	waitFor(t, controller.IsProcessing)

	controller.Reset()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSessionReset) {
			t.Fatalf("expected session reset, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pending reply was not abandoned")
	}

	snapshot := controller.Snapshot()
	if snapshot.IsProcessing || len(snapshot.Transcript) != 0 || snapshot.Stage != domain.StageInitial {
		t.Fatalf("expected clean session, got %+v", snapshot)
	}
}

func TestBackToUploadKeepsTranscript(t *testing.T) {
	t.Parallel()

	controller := newTestController(t, nil, nil, Config{})
	enterChat(t, controller)

	if err := controller.Back(); err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if got := controller.Stage(); got != domain.StageUpload {
		t.Fatalf("expected upload stage, got %q", got)
	}
	if err := controller.ContinueToChat(); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	if got := len(controller.Snapshot().Transcript); got != 1 {
		t.Fatalf("expected the opening message only once, got %d messages", got)
	}
}

func TestExitBeforeCompletionCancels(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{})
	if err := controller.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := controller.Exit(); err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if got := events.closedStages(); len(got) != 1 || got[0] != domain.StageCancelled {
		t.Fatalf("expected flow closed as cancelled, got %v", got)
	}
	if got := controller.Stage(); got != domain.StageInitial {
		t.Fatalf("expected initial stage after exit, got %q", got)
	}
}

func TestUploadsAndLinks(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{})

	if err := controller.AddLink("not a url"); err == nil {
		t.Fatalf("expected invalid link to be rejected")
	}
	var validation *uploads.ValidationError
	if err := controller.AddLink("   "); !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for i := 0; i < uploads.MaxLinks; i++ {
		if err := controller.AddLink("https://example.com/" + string(rune('a'+i))); err != nil {
			t.Fatalf("add link %d failed: %v", i, err)
		}
	}
	if err := controller.AddLink("https://example.com/extra"); err == nil {
		t.Fatalf("expected link cap to be enforced")
	}
	if !controller.RemoveLink("https://example.com/a") {
		t.Fatalf("expected link to be removed")
	}
	if controller.RemoveLink("https://example.com/a") {
		t.Fatalf("expected second removal to be a no-op")
	}

	if err := controller.AttachFile(domain.FileResume, "resume.exe", 1024); err == nil {
		t.Fatalf("expected unsupported extension to be rejected")
	}
	if err := controller.AttachFile(domain.FileCoverLetter, "letter.docx", 2048); err != nil {
		t.Fatalf("attach cover letter failed: %v", err)
	}

	snapshot := controller.Snapshot().Uploads
	if len(snapshot.Links) != uploads.MaxLinks-1 || snapshot.CoverLetter != "letter.docx" {
		t.Fatalf("unexpected uploads: %+v", snapshot)
	}
	if got := events.errorCodes(); len(got) != 4 || got[0] != domain.ErrorCodeValidation {
		t.Fatalf("expected four validation errors, got %v", got)
	}
}

func TestVoiceCallLocksModalityAndRecordsTranscript(t *testing.T) {
	t.Parallel()

	client := newFakeVoiceClient()
	events := &fakeEventSink{}
	controller := newTestController(t, client, events, Config{})
	enterChat(t, controller)

	if err := controller.StartCall(context.Background()); !errors.Is(err, ErrWrongModality) {
		t.Fatalf("expected call to require voice mode, got %v", err)
	}
	if err := controller.SwitchModality(domain.ModalityVoice); err != nil {
		t.Fatalf("switch to voice failed: %v", err)
	}
	if err := controller.SendMessage("typed"); !errors.Is(err, ErrWrongModality) {
		t.Fatalf("expected typed input to be refused in voice mode, got %v", err)
	}
	if err := controller.StartCall(context.Background()); err != nil {
		t.Fatalf("start call failed: %v", err)
	}
	if err := controller.SwitchModality(domain.ModalityText); !errors.Is(err, ErrModalityLocked) {
		t.Fatalf("expected modality lock while connecting, got %v", err)
	}

	client.emit(domain.VoiceEvent{Type: domain.VoiceEventCallStart})
	waitFor(t, func() bool { return controller.CallStatus().State == domain.CallStateActive })

	client.emit(domain.VoiceEvent{Type: domain.VoiceEventMessage, Role: domain.SenderUser, Text: "partial", Final: false})
	client.emit(domain.VoiceEvent{Type: domain.VoiceEventMessage, Role: domain.SenderUser, Text: "I design enclosures.", Final: true})
	client.emit(domain.VoiceEvent{Type: domain.VoiceEventMessage, Role: domain.SenderAssistant, Text: "Tell me more.", Final: true})
	waitFor(t, func() bool { return len(controller.Snapshot().Transcript) == 3 })

	if controller.ReadyToAdvance() {
		t.Fatalf("readiness must wait for the call to end")
	}
	if err := controller.StopCall(); err != nil {
		t.Fatalf("stop call failed: %v", err)
	}
	if got := controller.CallStatus().State; got != domain.CallStateEnding {
		t.Fatalf("expected ending state, got %q", got)
	}

	client.emit(domain.VoiceEvent{Type: domain.VoiceEventCallEnd})
	waitFor(t, controller.ReadyToAdvance)

	if got := controller.CallStatus().State; got != domain.CallStateIdle {
		t.Fatalf("expected idle after call end, got %q", got)
	}
	if err := controller.SwitchModality(domain.ModalityText); err != nil {
		t.Fatalf("switch back to text failed: %v", err)
	}
	if err := controller.Finish(); err != nil {
		t.Fatalf("finish after voice call failed: %v", err)
	}
}

func TestExitDuringActiveCallHangsUp(t *testing.T) {
	t.Parallel()

	client := newFakeVoiceClient()
	events := &fakeEventSink{}
	controller := newTestController(t, client, events, Config{})
	enterChat(t, controller)

	if err := controller.SwitchModality(domain.ModalityVoice); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if err := controller.StartCall(context.Background()); err != nil {
		t.Fatalf("start call failed: %v", err)
	}
	client.emit(domain.VoiceEvent{Type: domain.VoiceEventCallStart})
	waitFor(t, func() bool { return controller.CallStatus().State == domain.CallStateActive })

	if err := controller.Exit(); err != nil {
		t.Fatalf("exit failed: %v", err)
	}
	if client.stopCount() == 0 {
		t.Fatalf("expected the call to be stopped")
	}

	snapshot := controller.Snapshot()
	if snapshot.Call.State != domain.CallStateIdle || snapshot.Call.ElapsedSeconds != 0 || snapshot.Call.Muted {
		t.Fatalf("expected idle call after exit, got %+v", snapshot.Call)
	}
	if snapshot.Modality != domain.ModalityText || snapshot.Stage != domain.StageInitial {
		t.Fatalf("expected fresh session, got %+v", snapshot)
	}

	// A late hang-up from the service must not resurrect anything.
	client.emit(domain.VoiceEvent{Type: domain.VoiceEventCallEnd})
	time.Sleep(20 * time.Millisecond)
	if got := controller.CallStatus().State; got != domain.CallStateIdle {
		t.Fatalf("expected idle after late call end, got %q", got)
	}
}

func TestModalityCannotLeaveVoiceWhileCallStarts(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		client := newFakeVoiceClient()
		controller := newTestController(t, client, nil, Config{})
		enterChat(t, controller)
		if err := controller.SwitchModality(domain.ModalityVoice); err != nil {
			t.Fatalf("switch failed: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = controller.StartCall(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = controller.SwitchModality(domain.ModalityText)
		}()
		wg.Wait()

		if controller.CallStatus().State.Busy() && controller.Modality() != domain.ModalityVoice {
			t.Fatalf("call is %s while the modality is %s", controller.CallStatus().State, controller.Modality())
		}
	}
}

func TestOpenStartsFreshSession(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{})
	enterChat(t, controller)

	controller.Open()

	snapshot := controller.Snapshot()
	if snapshot.Stage != domain.StageInitial || len(snapshot.Transcript) != 0 || snapshot.Uploads.Resume != "" {
		t.Fatalf("expected a fresh session, got %+v", snapshot)
	}
	stages := events.stageList()
	if stages[len(stages)-1] != domain.StageInitial {
		t.Fatalf("expected initial stage event, got %v", stages)
	}
	if len(events.closedStages()) != 0 {
		t.Fatalf("opening must not report a closed flow")
	}
}

func TestStartCallWithoutClientReportsConfigError(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{})
	enterChat(t, controller)

	if err := controller.SwitchModality(domain.ModalityVoice); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if err := controller.StartCall(context.Background()); err == nil {
		t.Fatalf("expected start call to fail")
	}
	status := controller.CallStatus()
	if status.State != domain.CallStateError || status.ErrorKind != domain.ErrorKindConfig {
		t.Fatalf("expected config error, got %+v", status)
	}
	if got := events.errorCodes(); len(got) != 1 || got[0] != domain.ErrorCodeVoiceConf {
		t.Fatalf("expected voice config error event, got %v", got)
	}
}

func TestDictationUnsupported(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(t, nil, events, Config{})
	enterChat(t, controller)

	if controller.DictationStatus().Supported {
		t.Fatalf("expected dictation to be unsupported without a backend")
	}
	if err := controller.StartDictation(context.Background()); err == nil {
		t.Fatalf("expected dictation start to fail")
	}
	if got := events.errorCodes(); len(got) != 1 || got[0] != domain.ErrorCodeDictation {
		t.Fatalf("expected dictation error event, got %v", got)
	}
}

func TestClampThink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		min, max         time.Duration
		wantMin, wantMax time.Duration
	}{
		{"defaults", 0, 0, defaultThinkMin, defaultThinkMax},
		{"inverted", 900 * time.Millisecond, 100 * time.Millisecond, 900 * time.Millisecond, 900 * time.Millisecond},
		{"capped", time.Second, 5 * time.Second, time.Second, maxThinkDelay - time.Millisecond},
		{"both over", 3 * time.Second, 4 * time.Second, maxThinkDelay - time.Millisecond, maxThinkDelay - time.Millisecond},
	}
	for _, tt := range tests {
		gotMin, gotMax := clampThink(tt.min, tt.max)
		if gotMin != tt.wantMin || gotMax != tt.wantMax {
			t.Fatalf("%s: got (%v, %v), want (%v, %v)", tt.name, gotMin, gotMax, tt.wantMin, tt.wantMax)
		}
	}
}

func newTestController(t *testing.T, client *fakeVoiceClient, events *fakeEventSink, cfg Config) *ScreeningController {
	if cfg.ThinkMin == 0 && cfg.ThinkMax == 0 {
		cfg.ThinkMin = 5 * time.Millisecond
		cfg.ThinkMax = 10 * time.Millisecond
	}
	cfg.Voice.Assistant = domain.AssistantSpec{AssistantID: "assistant-1"}
	cfg.Voice.TickInterval = 10 * time.Millisecond

	if events == nil {
		events = &fakeEventSink{}
	}
	if client == nil {
		return NewScreeningController(nil, nil, nil, events, cfg, nil)
	}
	controller := NewScreeningController(client, nil, nil, events, cfg, nil)
	t.Cleanup(controller.Close)
	return controller
}

func enterChat(t *testing.T, controller *ScreeningController) {
	t.Helper()

	steps := []func() error{controller.Begin, controller.Next}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}
	if err := controller.SetFile(domain.FileResume, "resume.pdf"); err != nil {
		t.Fatalf("set resume failed: %v", err)
	}
	if err := controller.ContinueToChat(); err != nil {
		t.Fatalf("continue failed: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}

type fakeEventSink struct {
	mu         sync.Mutex
	stages     []domain.Stage
	messages   []domain.Message
	processing []bool
	calls      []domain.CallStatus
	dictation  []domain.DictationStatus
	closed     []domain.Stage
	errors     []domain.ErrorCode
}

func (f *fakeEventSink) StageChanged(s domain.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, s)
}

func (f *fakeEventSink) MessageAppended(m domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

func (f *fakeEventSink) ProcessingChanged(processing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processing = append(f.processing, processing)
}

func (f *fakeEventSink) CallStateChanged(status domain.CallStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, status)
}

func (f *fakeEventSink) DictationChanged(status domain.DictationStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dictation = append(f.dictation, status)
}

func (f *fakeEventSink) FlowClosed(s domain.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, s)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, code)
}

func (f *fakeEventSink) stageList() []domain.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Stage(nil), f.stages...)
}

func (f *fakeEventSink) processingList() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.processing...)
}

func (f *fakeEventSink) closedStages() []domain.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Stage(nil), f.closed...)
}

func (f *fakeEventSink) errorCodes() []domain.ErrorCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ErrorCode(nil), f.errors...)
}

type fakeVoiceClient struct {
	mu     sync.Mutex
	events chan domain.VoiceEvent
	starts int
	stops  int
	muted  bool
	closed bool
	lastID uint64
}

func newFakeVoiceClient() *fakeVoiceClient {
	return &fakeVoiceClient{events: make(chan domain.VoiceEvent, 16)}
}

func (f *fakeVoiceClient) Start(_ context.Context, callID uint64, _ domain.AssistantSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.lastID = callID
	return nil
}

func (f *fakeVoiceClient) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeVoiceClient) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeVoiceClient) Events() <-chan domain.VoiceEvent { return f.events }

func (f *fakeVoiceClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeVoiceClient) emit(event domain.VoiceEvent) {
	f.mu.Lock()
	event.CallID = f.lastID
	f.mu.Unlock()
	f.events <- event
}

func (f *fakeVoiceClient) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}
