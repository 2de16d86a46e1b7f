// Package editor реализует буферизованную сессию редактирования мира.
// Сессия перехватывает позиционные операции записи/чтения, применяет
// активную трансформацию, собирает записи в батчи и обслуживает чтения
// из локальных копий, скрывая задержку сетевой границы.
//
// Сессией владеет одна горутина: операции синхронны и не защищены
// блокировками. Единственное место параллелизма — явно включаемый
// многопоточный сброс буфера (см. Options.FlushWorkers). Конкурентные
// сессии над одним миром остаются вне гарантий согласованности.
package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/cache"
	"github.com/annel0/gdmc-client/gdmc"
	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/transform"
	"github.com/annel0/gdmc-client/vec"
	"github.com/annel0/gdmc-client/worldslice"
)

// Editor — фасад сессии: трансформации, буфер записи, кеш чтения,
// снимок мира и отложенные команды.
type Editor struct {
	opts    Options
	backend Backend

	stack    *transform.Stack
	buffer   *writeBuffer
	commands []pendingCommand

	blockCache cache.BlockCache

	slice *worldslice.Slice
	decay []bool // битовая карта распада, индексы snapshot.Index

	buildArea *vec.Box

	met    *sessionMetrics
	log    *logging.Logger
	closed bool
}

type pendingCommand struct {
	command  string
	position *vec.Vec3
}

// NewEditor открывает сессию. Трансформация начинается с identity.
func NewEditor(opts Options) (*Editor, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	e := &Editor{
		opts:    opts,
		backend: opts.Backend,
		stack:   transform.NewStack(),
		buffer:  newWriteBuffer(opts.BufferLimit),
		met:     getMetrics(),
		log:     logging.GetEditorLogger(),
	}

	if opts.Caching {
		if opts.Cache != nil {
			e.blockCache = opts.Cache
		} else {
			e.blockCache = cache.NewLRUCache(opts.CacheLimit)
		}
	}

	if opts.FlushWorkers > 1 {
		e.log.Warn("editor: параллельный сброс (%d воркеров) не гарантирует порядок под-батчей; "+
			"небезопасно при внешних изменениях тех же позиций", opts.FlushWorkers)
	}

	return e, nil
}

// Transform возвращает текущую эффективную трансформацию.
func (e *Editor) Transform() transform.Transform {
	return e.stack.Cur()
}

// PushTransform компонует t поверх эффективной трансформации,
// запоминая предыдущее значение для PopTransform.
func (e *Editor) PushTransform(t transform.Transform) error {
	if err := e.stack.Push(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// PopTransform восстанавливает трансформацию, действовавшую до
// последнего PushTransform.
func (e *Editor) PopTransform() error {
	return e.stack.Pop()
}

// WithTransform выполняет fn с t поверх текущей трансформации.
// Pop гарантирован на любом пути выхода, включая ошибочный.
func (e *Editor) WithTransform(t transform.Transform, fn func() error) error {
	if err := e.PushTransform(t); err != nil {
		return err
	}
	defer e.stack.Pop()
	return fn()
}

// PlaceBlock размещает блок в локальной позиции pos: позиция и
// ориентация блока проходят через эффективную трансформацию.
func (e *Editor) PlaceBlock(ctx context.Context, pos vec.Vec3, b block.Block) error {
	t := e.stack.Cur()
	return e.PlaceBlockGlobal(ctx, t.Apply(pos), b.Transformed(t.Rotation, t.Flip))
}

// PlaceBlockGlobal размещает блок в мировой позиции, минуя трансформацию.
// При включённой буферизации запись откладывается; повторная запись в ту
// же позицию перезаписывает отложенный блок, сохраняя его слот в порядке
// сброса. Заполнение буфера до предела запускает автоматический сброс.
func (e *Editor) PlaceBlockGlobal(ctx context.Context, pos vec.Vec3, b block.Block) error {
	if e.closed {
		return ErrClosed
	}

	p := gdmc.Placement{Pos: pos, Block: b}

	if e.opts.Buffering {
		e.buffer.put(p)
		e.met.blocksBuffered.Inc()
		e.met.bufferSize.Set(float64(e.buffer.len()))
		e.afterWrite(ctx, pos, b)
		if e.buffer.len() >= e.opts.BufferLimit {
			return e.FlushBuffer(ctx)
		}
		return nil
	}

	results, err := e.backend.PlaceBlocks(ctx, []gdmc.Placement{p}, e.opts.Place)
	if err != nil {
		return err
	}
	if len(results) > 0 && results[0].Message != "" {
		return fmt.Errorf("editor: размещение в %s: %s", pos, results[0].Message)
	}
	e.met.blocksFlushed.Inc()
	e.afterWrite(ctx, pos, b)
	return nil
}

// afterWrite фиксирует успешную запись: обновляет кеш чтения и помечает
// позицию в битовой карте распада. Пометки вне границ снимка — no-op.
func (e *Editor) afterWrite(ctx context.Context, pos vec.Vec3, b block.Block) {
	if e.blockCache != nil {
		if err := e.blockCache.Put(ctx, pos, b); err != nil {
			e.log.Warn("editor: запись в кеш %s: %v", pos, err)
		}
	}
	e.markDecay(pos)
}

func (e *Editor) markDecay(pos vec.Vec3) {
	if e.slice == nil {
		return
	}
	if i, ok := e.slice.Index(pos); ok {
		e.decay[i] = true
	}
}

// GetBlock читает блок в локальной позиции pos. Возвращённая ориентация
// приводится к локальной системе координат обратной трансформацией.
func (e *Editor) GetBlock(ctx context.Context, pos vec.Vec3) (block.Block, error) {
	t := e.stack.Cur()
	b, err := e.GetBlockGlobal(ctx, t.Apply(pos))
	if err != nil {
		return block.Block{}, err
	}
	inv := t.Inverted()
	return b.Transformed(inv.Rotation, inv.Flip), nil
}

// GetBlockGlobal читает блок в мировой позиции, минуя трансформацию.
// Порядок разрешения: буфер записи → кеш чтения → снимок (в границах и
// без пометки распада) → внешний примитив; его результат прогревает кеш.
// Чтение сразу после записи видит записанное значение и до сброса.
func (e *Editor) GetBlockGlobal(ctx context.Context, pos vec.Vec3) (block.Block, error) {
	if e.closed {
		return block.Block{}, ErrClosed
	}

	if b, ok := e.buffer.get(pos); ok {
		e.met.cacheHits.Inc()
		return b, nil
	}

	if e.blockCache != nil {
		if b, ok := e.blockCache.Get(ctx, pos); ok {
			e.met.cacheHits.Inc()
			return b, nil
		}
	}

	if e.slice != nil {
		if i, ok := e.slice.Index(pos); ok && !e.decay[i] {
			if b, ok := e.slice.BlockAt(pos); ok {
				e.met.cacheHits.Inc()
				return b, nil
			}
		}
	}

	e.met.cacheMisses.Inc()
	e.met.backendReads.Inc()
	placed, err := e.backend.GetBlocks(ctx, pos, nil)
	if err != nil {
		return block.Block{}, err
	}
	if len(placed) == 0 {
		return block.Block{}, fmt.Errorf("editor: сервер не вернул блок для %s", pos)
	}

	b := placed[0].Block
	if e.blockCache != nil {
		if err := e.blockCache.Put(ctx, pos, b); err != nil {
			e.log.Warn("editor: запись в кеш %s: %v", pos, err)
		}
	}
	return b, nil
}

// RunCommand выполняет серверную команду. При буферизации команда
// откладывается и уходит после блоков очередного сброса, сохраняя
// порядок относительно уже отложенных записей.
func (e *Editor) RunCommand(ctx context.Context, command string) error {
	return e.runCommand(ctx, command, nil)
}

// RunCommandAt выполняет команду от лица локальной позиции pos
// (execute positioned): позиция проходит через трансформацию.
func (e *Editor) RunCommandAt(ctx context.Context, command string, pos vec.Vec3) error {
	global := e.stack.Cur().Apply(pos)
	return e.runCommand(ctx, command, &global)
}

func (e *Editor) runCommand(ctx context.Context, command string, position *vec.Vec3) error {
	if e.closed {
		return ErrClosed
	}
	if e.opts.Buffering {
		e.commands = append(e.commands, pendingCommand{command: command, position: position})
		return nil
	}
	_, err := e.backend.RunCommand(ctx, command, position)
	return err
}

// BufferLen возвращает число отложенных записей.
func (e *Editor) BufferLen() int {
	return e.buffer.len()
}

// FlushBuffer отправляет все отложенные записи под-батчами размера
// MaxBatchSize бекенда, в порядке буфера, затем отложенные команды.
// Частичная неудача возвращается как *PartialFlushError: отправленные
// записи убраны из буфера, неудавшиеся сохранены для повторного сброса.
func (e *Editor) FlushBuffer(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}

	entries := e.buffer.snapshot()
	if len(entries) > 0 {
		start := time.Now()

		maxBatch := e.backend.MaxBatchSize()
		if maxBatch <= 0 {
			maxBatch = len(entries)
		}

		var err error
		if e.opts.FlushWorkers > 1 {
			err = e.flushParallel(ctx, entries, maxBatch)
		} else {
			err = e.flushSequential(ctx, entries, maxBatch)
		}

		e.met.bufferSize.Set(float64(e.buffer.len()))
		e.met.flushDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
	}

	return e.flushCommands(ctx)
}

func (e *Editor) flushSequential(ctx context.Context, entries []gdmc.Placement, maxBatch int) error {
	done := 0
	for done < len(entries) {
		end := min(done+maxBatch, len(entries))
		batch := entries[done:end]

		results, err := e.backend.PlaceBlocks(ctx, batch, e.opts.Place)
		if err != nil {
			e.buffer.dropPrefix(done)
			e.met.flushBatches.WithLabelValues("error").Inc()
			return &PartialFlushError{Done: done, Failed: len(entries) - done, Err: err}
		}
		e.reportEntryFailures(batch, results)
		e.publishWrites(ctx, batch)

		done = end
		e.met.flushBatches.WithLabelValues("ok").Inc()
		e.met.blocksFlushed.Add(float64(len(batch)))
	}
	e.buffer.reset()
	return nil
}

// flushParallel раздаёт под-батчи воркерам. Порядок под-батчей не
// гарантирован; сессия блокируется до завершения всех воркеров, так что
// перекрывающихся сбросов не бывает и записи не теряются на teardown.
func (e *Editor) flushParallel(ctx context.Context, entries []gdmc.Placement, maxBatch int) error {
	type subBatch struct {
		index   int
		entries []gdmc.Placement
	}

	var batches []subBatch
	for start := 0; start < len(entries); start += maxBatch {
		end := min(start+maxBatch, len(entries))
		batches = append(batches, subBatch{index: len(batches), entries: entries[start:end]})
	}

	jobs := make(chan subBatch)
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for w := 0; w < e.opts.FlushWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sb := range jobs {
				results, err := e.backend.PlaceBlocks(ctx, sb.entries, e.opts.Place)
				if err != nil {
					errs[sb.index] = err
					continue
				}
				e.reportEntryFailures(sb.entries, results)
				e.publishWrites(ctx, sb.entries)
			}
		}()
	}
	for _, sb := range batches {
		jobs <- sb
	}
	close(jobs)
	wg.Wait()

	var retained []gdmc.Placement
	var firstErr error
	for _, sb := range batches {
		if errs[sb.index] != nil {
			retained = append(retained, sb.entries...)
			if firstErr == nil {
				firstErr = errs[sb.index]
			}
			e.met.flushBatches.WithLabelValues("error").Inc()
		} else {
			e.met.flushBatches.WithLabelValues("ok").Inc()
			e.met.blocksFlushed.Add(float64(len(sb.entries)))
		}
	}

	if firstErr != nil {
		e.buffer.replace(retained)
		return &PartialFlushError{
			Done:   len(entries) - len(retained),
			Failed: len(retained),
			Err:    firstErr,
		}
	}
	e.buffer.reset()
	return nil
}

// reportEntryFailures логирует по-записные отказы сервера. Батч при этом
// считается отправленным: сервер принял запрос, отказ локален для записи.
func (e *Editor) reportEntryFailures(batch []gdmc.Placement, results []gdmc.PlaceResult) {
	for i, r := range results {
		if r.Message != "" && i < len(batch) {
			e.log.Warn("editor: сервер отклонил блок в %s: %s", batch[i].Pos, r.Message)
		}
	}
}

// publishWrites уведомляет другие сессии об отправленном под-батче,
// если кеш поддерживает распределённую инвалидацию. Ошибка публикации
// не отменяет сброс: уведомления best-effort.
func (e *Editor) publishWrites(ctx context.Context, batch []gdmc.Placement) {
	src, ok := e.blockCache.(cache.InvalidationSource)
	if !ok {
		return
	}
	positions := make([]vec.Vec3, len(batch))
	for i, p := range batch {
		positions[i] = p.Pos
	}
	if err := src.PublishWrites(ctx, positions); err != nil {
		e.log.Warn("editor: публикация инвалидации после сброса: %v", err)
	}
}

func (e *Editor) flushCommands(ctx context.Context) error {
	for i, cmd := range e.commands {
		if _, err := e.backend.RunCommand(ctx, cmd.command, cmd.position); err != nil {
			e.commands = e.commands[i:]
			return fmt.Errorf("editor: отложенная команда %q: %w", cmd.command, err)
		}
	}
	e.commands = nil
	return nil
}

// LoadWorldSlice загружает снимок региона box со свежей битовой картой
// распада, заменяя предыдущий. kinds=nil — карты высот по умолчанию.
func (e *Editor) LoadWorldSlice(ctx context.Context, box vec.Box, kinds []string) (*worldslice.Slice, error) {
	if e.closed {
		return nil, ErrClosed
	}
	s, err := worldslice.Load(ctx, e.backend, box, kinds)
	if err != nil {
		return nil, err
	}
	e.slice = s
	e.decay = make([]bool, box.Volume())
	e.warmCacheFromSlice(ctx, s)
	return s, nil
}

// warmCacheFromSlice прогревает разделяемый кеш содержимым снимка,
// если кеш поддерживает пакетную запись (Redis pipeline). Локальный
// LRU не прогревается: снимок и так обслуживает чтения в его границах.
func (e *Editor) warmCacheFromSlice(ctx context.Context, s *worldslice.Slice) {
	bp, ok := e.blockCache.(cache.BatchPutter)
	if !ok {
		return
	}
	items := make(map[vec.Vec3]block.Block, s.Box().Volume())
	s.ForEach(func(pos vec.Vec3, b block.Block) {
		if !b.IsEmpty() {
			items[pos] = b
		}
	})
	if err := bp.PutBatch(ctx, items); err != nil {
		e.log.Warn("editor: прогрев кеша снимком %s: %v", s.Box(), err)
	}
}

// WorldSlice возвращает текущий снимок (nil до первой загрузки).
func (e *Editor) WorldSlice() *worldslice.Slice {
	return e.slice
}

// HeightAt возвращает высоту столбца из снимка по карте высот kind.
func (e *Editor) HeightAt(kind string, x, z int) (int32, error) {
	if e.slice == nil {
		return 0, ErrNoWorldSlice
	}
	h, ok := e.slice.HeightAt(kind, x, z)
	if !ok {
		return 0, fmt.Errorf("%w: столбец (%d, %d) вне снимка или карта %s не загружена",
			ErrInvalidArgument, x, z, kind)
	}
	return h, nil
}

// GetBuildArea возвращает область застройки; значение кешируется на
// время жизни сессии.
func (e *Editor) GetBuildArea(ctx context.Context) (vec.Box, error) {
	if e.buildArea != nil {
		return *e.buildArea, nil
	}
	area, err := e.backend.GetBuildArea(ctx)
	if err != nil {
		return vec.Box{}, err
	}
	e.buildArea = &area
	return area, nil
}

// Close сбрасывает остаток буфера и освобождает ресурсы сессии.
// При ошибке сброса сессия остаётся открытой, чтобы вызывающий мог
// повторить — записи не теряются на teardown.
func (e *Editor) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	if err := e.FlushBuffer(ctx); err != nil {
		return err
	}
	if e.blockCache != nil {
		if err := e.blockCache.Close(); err != nil {
			e.log.Warn("editor: закрытие кеша: %v", err)
		}
	}
	e.closed = true
	e.log.Debug("editor: сессия закрыта")
	return nil
}
