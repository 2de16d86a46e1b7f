package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/gdmc"
	"github.com/annel0/gdmc-client/transform"
	"github.com/annel0/gdmc-client/vec"
)

// fakeBackend — внешние примитивы в памяти для тестов сессии.
// Потокобезопасен: параллельный сброс зовёт PlaceBlocks из воркеров.
type fakeBackend struct {
	mu       sync.Mutex
	world    map[vec.Vec3]block.Block
	batches  [][]gdmc.Placement
	commands []string

	getCalls   int
	placeCalls int
	failAfter  int // >0: вызовы PlaceBlocks после N-го возвращают ошибку
	maxBatch   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		world:    make(map[vec.Vec3]block.Block),
		maxBatch: 4096,
	}
}

func (f *fakeBackend) GetBlocks(_ context.Context, pos vec.Vec3, size *vec.Vec3) ([]gdmc.PlacedBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if size == nil {
		b, ok := f.world[pos]
		if !ok {
			b = block.New("minecraft:air")
		}
		return []gdmc.PlacedBlock{{Pos: pos, Block: b}}, nil
	}

	var placed []gdmc.PlacedBlock
	for x := pos.X; x < pos.X+size.X; x++ {
		for y := pos.Y; y < pos.Y+size.Y; y++ {
			for z := pos.Z; z < pos.Z+size.Z; z++ {
				p := vec.Vec3{X: x, Y: y, Z: z}
				b, ok := f.world[p]
				if !ok {
					b = block.New("minecraft:air")
				}
				placed = append(placed, gdmc.PlacedBlock{Pos: p, Block: b})
			}
		}
	}
	return placed, nil
}

func (f *fakeBackend) PlaceBlocks(_ context.Context, batch []gdmc.Placement, _ gdmc.PlaceOptions) ([]gdmc.PlaceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeCalls++
	if f.failAfter > 0 && f.placeCalls > f.failAfter {
		return nil, errors.New("server unavailable")
	}
	results := make([]gdmc.PlaceResult, len(batch))
	for i, p := range batch {
		f.world[p.Pos] = p.Block
		results[i] = gdmc.PlaceResult{OK: true, Changed: true}
	}
	f.batches = append(f.batches, append([]gdmc.Placement(nil), batch...))
	return results, nil
}

func (f *fakeBackend) RunCommand(_ context.Context, command string, _ *vec.Vec3) ([]gdmc.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	return []gdmc.CommandResult{{OK: true}}, nil
}

func (f *fakeBackend) GetBuildArea(_ context.Context) (vec.Box, error) {
	return vec.Box{Offset: vec.Vec3{X: 0, Y: 0, Z: 0}, Size: vec.Vec3{X: 64, Y: 64, Z: 64}}, nil
}

func (f *fakeBackend) GetHeightmap(_ context.Context, rect vec.Rect, _ string) ([]int32, error) {
	heights := make([]int32, rect.Area())
	for i := range heights {
		heights[i] = 64
	}
	return heights, nil
}

func (f *fakeBackend) MaxBatchSize() int { return f.maxBatch }

func newTestEditor(t *testing.T, opts Options) (*Editor, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	opts.Backend = fb
	e, err := NewEditor(opts)
	if err != nil {
		t.Fatalf("NewEditor вернул ошибку: %v", err)
	}
	return e, fb
}

func TestOptionsValidation(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"отрицательный буфер", Options{BufferLimit: -1}},
		{"отрицательный кеш", Options{CacheLimit: -5}},
		{"отрицательные воркеры", Options{FlushWorkers: -2}},
		{"воркеры без подтверждения", Options{FlushWorkers: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Backend = newFakeBackend()
			if _, err := NewEditor(tc.opts); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ожидался ErrInvalidArgument, получено %v", err)
			}
		})
	}

	// Подтверждённый параллельный сброс допустим
	fb := newFakeBackend()
	if _, err := NewEditor(Options{Backend: fb, FlushWorkers: 4, AcknowledgeUnorderedFlush: true}); err != nil {
		t.Errorf("подтверждённые воркеры отвергнуты: %v", err)
	}
}

func TestTransparency(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true})

	pos := vec.Vec3{X: 3, Y: 60, Z: -2}
	want := block.New("minecraft:oak_planks")

	if err := e.PlaceBlock(ctx, pos, want); err != nil {
		t.Fatalf("PlaceBlock вернул ошибку: %v", err)
	}

	got, err := e.GetBlock(ctx, pos)
	if err != nil {
		t.Fatalf("GetBlock вернул ошибку: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("чтение до сброса вернуло %s, ожидался %s", got.ID, want.ID)
	}
	if fb.getCalls != 0 {
		t.Errorf("чтение до сброса не должно ходить к серверу (вызовов: %d)", fb.getCalls)
	}
}

func TestBufferOverwriteKeepsSlot(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true})

	a := vec.Vec3{X: 0, Y: 0, Z: 0}
	b := vec.Vec3{X: 1, Y: 0, Z: 0}

	e.PlaceBlockGlobal(ctx, a, block.New("minecraft:stone"))
	e.PlaceBlockGlobal(ctx, b, block.New("minecraft:dirt"))
	e.PlaceBlockGlobal(ctx, a, block.New("minecraft:glass")) // перезапись

	if e.BufferLen() != 2 {
		t.Fatalf("BufferLen = %d, ожидался 2", e.BufferLen())
	}
	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}

	batch := fb.batches[0]
	if batch[0].Pos != a || batch[0].Block.ID != "minecraft:glass" {
		t.Errorf("перезаписанная позиция должна сохранить первый слот: %+v", batch[0])
	}
	if batch[1].Pos != b {
		t.Errorf("порядок остальных позиций нарушен: %+v", batch[1])
	}
}

func TestFlushSubBatches(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true, BufferLimit: 100})
	fb.maxBatch = 3

	for i := 0; i < 8; i++ {
		e.PlaceBlockGlobal(ctx, vec.Vec3{X: i}, block.New("minecraft:stone"))
	}
	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}

	if len(fb.batches) != 3 {
		t.Fatalf("ожидалось 3 под-батча, получено %d", len(fb.batches))
	}
	if len(fb.batches[0]) != 3 || len(fb.batches[1]) != 3 || len(fb.batches[2]) != 2 {
		t.Errorf("размеры под-батчей: %d/%d/%d, ожидалось 3/3/2",
			len(fb.batches[0]), len(fb.batches[1]), len(fb.batches[2]))
	}
	if e.BufferLen() != 0 {
		t.Errorf("буфер не пуст после сброса: %d", e.BufferLen())
	}
}

func TestPartialFlushRetainsRemainder(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true, BufferLimit: 100})
	fb.maxBatch = 2

	for i := 0; i < 6; i++ {
		e.PlaceBlockGlobal(ctx, vec.Vec3{X: i}, block.New("minecraft:stone"))
	}

	// Первый под-батч проходит, начиная со второго — ошибка
	fb.failAfter = 1

	err := e.FlushBuffer(ctx)
	var pfe *PartialFlushError
	if !errors.As(err, &pfe) {
		t.Fatalf("ожидался PartialFlushError, получено %v", err)
	}
	if pfe.Done != 2 || pfe.Failed != 4 {
		t.Errorf("Done=%d Failed=%d, ожидалось 2/4", pfe.Done, pfe.Failed)
	}
	if e.BufferLen() != 4 {
		t.Fatalf("в буфере %d записей, ожидалось 4", e.BufferLen())
	}

	// Удержанные записи всё ещё видны чтению (прозрачность сохраняется)
	if _, ok := e.buffer.get(vec.Vec3{X: 5}); !ok {
		t.Error("неотправленная запись должна остаться в буфере")
	}
	if _, ok := e.buffer.get(vec.Vec3{X: 0}); ok {
		t.Error("подтверждённая запись должна покинуть буфер")
	}

	// Повторный сброс дошлёт только остаток
	fb.failAfter = 0
	fb.placeCalls = 0
	sent := len(fb.batches)
	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("повторный FlushBuffer вернул ошибку: %v", err)
	}
	var resent int
	for _, b := range fb.batches[sent:] {
		resent += len(b)
	}
	if resent != 4 {
		t.Errorf("повторно отправлено %d записей, ожидалось 4", resent)
	}
	if e.BufferLen() != 0 {
		t.Errorf("буфер не пуст после повторного сброса: %d", e.BufferLen())
	}
}

func TestFlushedReadGoesToBackendOnce(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true}) // кеш выключен

	pos := vec.Vec3{X: 7, Y: 7, Z: 7}
	e.PlaceBlockGlobal(ctx, pos, block.New("minecraft:stone"))
	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}

	if _, err := e.GetBlockGlobal(ctx, pos); err != nil {
		t.Fatalf("GetBlockGlobal вернул ошибку: %v", err)
	}
	if fb.getCalls != 1 {
		t.Errorf("ожидался ровно один внешний вызов чтения, было %d", fb.getCalls)
	}
}

func TestCachedReadSkipsBackend(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true, Caching: true})

	pos := vec.Vec3{X: 7, Y: 7, Z: 7}
	e.PlaceBlockGlobal(ctx, pos, block.New("minecraft:stone"))
	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}

	// Запись осталась в кеше чтения после сброса
	got, err := e.GetBlockGlobal(ctx, pos)
	if err != nil {
		t.Fatalf("GetBlockGlobal вернул ошибку: %v", err)
	}
	if got.ID != "minecraft:stone" {
		t.Errorf("из кеша получен %s", got.ID)
	}
	if fb.getCalls != 0 {
		t.Errorf("чтение из кеша не должно ходить к серверу (вызовов: %d)", fb.getCalls)
	}
}

func TestAutoFlushAtLimit(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true, BufferLimit: 4})

	for i := 0; i < 4; i++ {
		if err := e.PlaceBlockGlobal(ctx, vec.Vec3{X: i}, block.New("minecraft:stone")); err != nil {
			t.Fatalf("PlaceBlockGlobal вернул ошибку: %v", err)
		}
	}
	if len(fb.batches) != 1 {
		t.Fatalf("заполнение буфера должно вызвать автоматический сброс, батчей: %d", len(fb.batches))
	}
	if e.BufferLen() != 0 {
		t.Errorf("буфер не пуст после автоматического сброса: %d", e.BufferLen())
	}
}

func TestTransformScenario(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true})

	stairs := block.New("minecraft:oak_stairs").WithState("facing", "north")

	// Сдвиг без поворота: позиция меняется, ориентация — нет
	if err := e.PushTransform(transform.FromTranslation(vec.Vec3{X: 5, Y: 0, Z: 5})); err != nil {
		t.Fatalf("PushTransform вернул ошибку: %v", err)
	}
	if err := e.PlaceBlock(ctx, vec.Vec3{}, stairs); err != nil {
		t.Fatalf("PlaceBlock вернул ошибку: %v", err)
	}
	if err := e.PopTransform(); err != nil {
		t.Fatalf("PopTransform вернул ошибку: %v", err)
	}

	// Поворот на четверть: ориентация north -> east, позиция (0,0,0) на месте
	rot, _ := transform.FromRotation(1)
	if err := e.PushTransform(rot); err != nil {
		t.Fatalf("PushTransform вернул ошибку: %v", err)
	}
	if err := e.PlaceBlock(ctx, vec.Vec3{}, stairs); err != nil {
		t.Fatalf("PlaceBlock вернул ошибку: %v", err)
	}
	if err := e.PopTransform(); err != nil {
		t.Fatalf("PopTransform вернул ошибку: %v", err)
	}

	if !e.Transform().IsIdentity() {
		t.Error("после парных push/pop трансформация должна вернуться к identity")
	}

	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}

	batch := fb.batches[0]
	if batch[0].Pos != (vec.Vec3{X: 5, Y: 0, Z: 5}) {
		t.Errorf("сдвинутая позиция = %s, ожидалась (5, 0, 5)", batch[0].Pos)
	}
	if batch[0].Block.States["facing"] != "north" {
		t.Errorf("сдвиг не должен менять ориентацию: %s", batch[0].Block.States["facing"])
	}
	if batch[1].Pos != (vec.Vec3{}) {
		t.Errorf("повёрнутая позиция = %s, ожидалась (0, 0, 0)", batch[1].Pos)
	}
	if batch[1].Block.States["facing"] != "east" {
		t.Errorf("facing = %s, ожидался east", batch[1].Block.States["facing"])
	}
}

func TestGetBlockUnrotatesOrientation(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{})

	// В мире лежат ступени facing=east; в системе координат с поворотом
	// на четверть локальное чтение должно вернуть facing=north.
	fb.world[vec.Vec3{}] = block.New("minecraft:oak_stairs").WithState("facing", "east")

	rot, _ := transform.FromRotation(1)
	err := e.WithTransform(rot, func() error {
		got, err := e.GetBlock(ctx, vec.Vec3{})
		if err != nil {
			return err
		}
		if got.States["facing"] != "north" {
			return fmt.Errorf("facing = %s, ожидался north", got.States["facing"])
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWithTransformPopsOnError(t *testing.T) {
	e, _ := newTestEditor(t, Options{})

	boom := errors.New("boom")
	err := e.WithTransform(transform.FromTranslation(vec.Vec3{X: 1}), func() error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ошибка fn потеряна: %v", err)
	}
	if !e.Transform().IsIdentity() {
		t.Error("pop должен выполняться и на ошибочном пути")
	}
}

func TestWorldSliceAndDecay(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true})

	pos := vec.Vec3{X: 1, Y: 1, Z: 1}
	fb.world[pos] = block.New("minecraft:bedrock")

	box := vec.Box{Size: vec.Vec3{X: 4, Y: 4, Z: 4}}
	if _, err := e.LoadWorldSlice(ctx, box, []string{"WORLD_SURFACE"}); err != nil {
		t.Fatalf("LoadWorldSlice вернул ошибку: %v", err)
	}
	fb.getCalls = 0

	// Чтение обслуживается снимком без похода к серверу
	got, err := e.GetBlockGlobal(ctx, pos)
	if err != nil {
		t.Fatalf("GetBlockGlobal вернул ошибку: %v", err)
	}
	if got.ID != "minecraft:bedrock" || fb.getCalls != 0 {
		t.Errorf("чтение из снимка: блок %s, вызовов %d", got.ID, fb.getCalls)
	}

	// Запись помечает распад; после сброса (буфер пуст, кеша нет)
	// чтение обязано идти к серверу, а не к устаревшему снимку
	e.PlaceBlockGlobal(ctx, pos, block.New("minecraft:glass"))
	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}
	fb.getCalls = 0

	got, err = e.GetBlockGlobal(ctx, pos)
	if err != nil {
		t.Fatalf("GetBlockGlobal вернул ошибку: %v", err)
	}
	if got.ID != "minecraft:glass" {
		t.Errorf("после распада получен %s, ожидался minecraft:glass", got.ID)
	}
	if fb.getCalls != 1 {
		t.Errorf("распавшаяся позиция должна читаться с сервера (вызовов: %d)", fb.getCalls)
	}

	// Высоты из снимка
	h, err := e.HeightAt("WORLD_SURFACE", 2, 2)
	if err != nil {
		t.Fatalf("HeightAt вернул ошибку: %v", err)
	}
	if h != 64 {
		t.Errorf("HeightAt = %d, ожидалось 64", h)
	}
}

func TestCommandsFlushAfterBlocks(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true})

	e.PlaceBlockGlobal(ctx, vec.Vec3{}, block.New("minecraft:stone"))
	if err := e.RunCommand(ctx, "say hello"); err != nil {
		t.Fatalf("RunCommand вернул ошибку: %v", err)
	}
	if len(fb.commands) != 0 {
		t.Fatal("команда не должна уходить до сброса")
	}

	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}
	if len(fb.batches) != 1 || len(fb.commands) != 1 {
		t.Errorf("после сброса: батчей %d, команд %d", len(fb.batches), len(fb.commands))
	}
}

func TestParallelFlush(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{
		Buffering:                 true,
		BufferLimit:               100,
		FlushWorkers:              3,
		AcknowledgeUnorderedFlush: true,
	})
	fb.maxBatch = 2

	for i := 0; i < 6; i++ {
		e.PlaceBlockGlobal(ctx, vec.Vec3{X: i}, block.New("minecraft:stone"))
	}

	if err := e.FlushBuffer(ctx); err != nil {
		t.Fatalf("FlushBuffer вернул ошибку: %v", err)
	}
	if e.BufferLen() != 0 {
		t.Errorf("буфер не пуст: %d", e.BufferLen())
	}
	total := 0
	for _, b := range fb.batches {
		total += len(b)
	}
	if total != 6 {
		t.Errorf("отправлено %d записей, ожидалось 6", total)
	}
}

func TestCloseFlushesBuffer(t *testing.T) {
	ctx := context.Background()
	e, fb := newTestEditor(t, Options{Buffering: true})

	e.PlaceBlockGlobal(ctx, vec.Vec3{}, block.New("minecraft:stone"))
	if err := e.Close(ctx); err != nil {
		t.Fatalf("Close вернул ошибку: %v", err)
	}
	if len(fb.batches) != 1 {
		t.Error("Close обязан сбросить остаток буфера")
	}

	if err := e.PlaceBlockGlobal(ctx, vec.Vec3{}, block.New("minecraft:dirt")); !errors.Is(err, ErrClosed) {
		t.Errorf("запись в закрытую сессию: %v", err)
	}
	// Повторный Close — no-op
	if err := e.Close(ctx); err != nil {
		t.Errorf("повторный Close вернул ошибку: %v", err)
	}
}
