// Package gdmc содержит HTTP-клиент интерфейса GDMC — внешние
// примитивы чтения и записи мира. Это тонкая обёртка над протоколом;
// высокоуровневая буферизация и преобразования координат живут
// в пакете editor.
package gdmc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/vec"
)

// DefaultHost — адрес интерфейса GDMC HTTP по умолчанию.
const DefaultHost = "http://localhost:9000"

// ClientConfig содержит настройки HTTP-клиента.
type ClientConfig struct {
	Host      string        `yaml:"host" env:"GDMC_HOST"`
	Dimension string        `yaml:"dimension" env:"GDMC_DIMENSION"` // overworld/the_nether/the_end; пусто = overworld
	Retries   int           `yaml:"retries" env:"GDMC_RETRIES"`
	Timeout   time.Duration `yaml:"timeout" env:"GDMC_TIMEOUT"`

	// MaxBatchSize — максимальный размер одного PUT /blocks.
	// Пакеты большего размера editor режет на под-пакеты.
	MaxBatchSize int `yaml:"max_batch_size" env:"GDMC_MAX_BATCH_SIZE"`
}

// Client — клиент интерфейса GDMC HTTP.
// Потокобезопасен: состояние после создания не меняется.
type Client struct {
	host         string
	dimension    string
	retries      int
	maxBatchSize int
	http         *http.Client
	tracer       oteltrace.Tracer
	log          *logging.Logger
}

// retryWait — пауза между повторами запроса при сетевых сбоях.
const retryWait = 3 * time.Second

// NewClient создаёт клиент с заполнением настроек по умолчанию.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Retries == 0 {
		cfg.Retries = 4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = 4096
	}

	return &Client{
		host:         cfg.Host,
		dimension:    cfg.Dimension,
		retries:      cfg.Retries,
		maxBatchSize: cfg.MaxBatchSize,
		http:         &http.Client{Timeout: cfg.Timeout},
		tracer:       otel.Tracer("gdmc-client"),
		log:          logging.GetTransportLogger(),
	}
}

// Host возвращает адрес интерфейса.
func (c *Client) Host() string { return c.host }

// MaxBatchSize возвращает максимальный размер пакета записи.
func (c *Client) MaxBatchSize() int { return c.maxBatchSize }

// request выполняет HTTP-запрос с повторами при сетевых сбоях.
// Ошибки протокола (HTTP 4xx/5xx) не повторяются — политика повторов
// на них принадлежит вызывающему.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "gdmc."+method+" "+path,
		oteltrace.WithAttributes(attribute.Int("gdmc.body_bytes", len(body))))
	defer span.End()

	u := c.host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", uuid.NewString())

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt >= c.retries {
				return nil, &ConnectionError{Host: c.host, Err: lastErr}
			}
			c.log.Warn("gdmc: запрос %s %s не удался, повтор через %s (осталось %d): %v",
				method, path, retryWait, c.retries-attempt, err)
			select {
			case <-time.After(retryWait):
				continue
			case <-ctx.Done():
				return nil, &ConnectionError{Host: c.host, Err: ctx.Err()}
			}
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &ConnectionError{Host: c.host, Err: err}
		}
		if resp.StatusCode >= 400 {
			return nil, &ServerError{Status: resp.StatusCode, Message: string(data)}
		}
		return data, nil
	}
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	if c.dimension != "" {
		q.Set("dimension", c.dimension)
	}
	return q
}

// GetBlocks возвращает блоки региона (позиция + размер) вместе с их
// мировыми позициями. size=nil читает один блок.
func (c *Client) GetBlocks(ctx context.Context, pos vec.Vec3, size *vec.Vec3) ([]PlacedBlock, error) {
	q := c.baseQuery()
	q.Set("x", strconv.Itoa(pos.X))
	q.Set("y", strconv.Itoa(pos.Y))
	q.Set("z", strconv.Itoa(pos.Z))
	if size != nil {
		q.Set("dx", strconv.Itoa(size.X))
		q.Set("dy", strconv.Itoa(size.Y))
		q.Set("dz", strconv.Itoa(size.Z))
	}
	q.Set("includeState", "true")
	q.Set("includeData", "true")

	data, err := c.request(ctx, http.MethodGet, "/blocks", q, nil)
	if err != nil {
		return nil, err
	}

	var raw []blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("gdmc: некорректный ответ /blocks: %w", err)
	}

	result := make([]PlacedBlock, 0, len(raw))
	for _, r := range raw {
		result = append(result, PlacedBlock{
			Pos:   vec.Vec3{X: r.X, Y: r.Y, Z: r.Z},
			Block: block.Block{ID: r.ID, States: r.State, Data: r.Data},
		})
	}
	return result, nil
}

// PlaceBlocks размещает пакет блоков одним запросом PUT /blocks.
// Возвращает результат по каждому элементу пакета в исходном порядке.
// Пустые блоки в пакет попадать не должны — их отсеивает editor.
func (c *Client) PlaceBlocks(ctx context.Context, batch []Placement, opts PlaceOptions) ([]PlaceResult, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	q := c.baseQuery()
	if opts.CustomFlags != "" {
		q.Set("customFlags", opts.CustomFlags)
	} else {
		q.Set("doBlockUpdates", strconv.FormatBool(opts.DoBlockUpdates))
		q.Set("spawnDrops", strconv.FormatBool(opts.SpawnDrops))
	}

	body := make([]blockJSON, 0, len(batch))
	for _, p := range batch {
		body = append(body, blockJSON{
			X: p.Pos.X, Y: p.Pos.Y, Z: p.Pos.Z,
			ID:    p.Block.ID,
			State: p.Block.States,
			Data:  p.Block.Data,
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gdmc: сериализация пакета: %w", err)
	}

	data, err := c.request(ctx, http.MethodPut, "/blocks", q, payload)
	if err != nil {
		return nil, err
	}

	var raw []placeResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("gdmc: некорректный ответ PUT /blocks: %w", err)
	}

	results := make([]PlaceResult, 0, len(raw))
	for _, r := range raw {
		if r.Message != "" {
			results = append(results, PlaceResult{OK: false, Message: r.Message})
			continue
		}
		changed := r.Status != nil && *r.Status == 1
		results = append(results, PlaceResult{OK: true, Changed: changed})
	}
	return results, nil
}

// RunCommand выполняет одну или несколько игровых команд (разделённых
// переводами строки) без ведущего «/». Если position задана, каждая
// команда выполняется из этой мировой позиции.
func (c *Client) RunCommand(ctx context.Context, command string, position *vec.Vec3) ([]CommandResult, error) {
	if position != nil {
		prefix := fmt.Sprintf("execute positioned %d %d %d run ",
			position.X, position.Y, position.Z)
		lines := strings.Split(command, "\n")
		for i, line := range lines {
			if strings.TrimSpace(line) != "" {
				lines[i] = prefix + line
			}
		}
		command = strings.Join(lines, "\n")
	}

	data, err := c.request(ctx, http.MethodPost, "/command", c.baseQuery(), []byte(command))
	if err != nil {
		return nil, err
	}

	var raw []placeResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("gdmc: некорректный ответ /command: %w", err)
	}

	results := make([]CommandResult, 0, len(raw))
	for _, r := range raw {
		results = append(results, CommandResult{OK: r.Message == "", Message: r.Message})
	}
	return results, nil
}

// buildAreaJSON — ответ GET /buildarea.
type buildAreaJSON struct {
	XFrom int `json:"xFrom"`
	YFrom int `json:"yFrom"`
	ZFrom int `json:"zFrom"`
	XTo   int `json:"xTo"`
	YTo   int `json:"yTo"`
	ZTo   int `json:"zTo"`
}

// GetBuildArea возвращает область строительства, заданную
// /setbuildarea в игре. Область всегда в мировых координатах.
func (c *Client) GetBuildArea(ctx context.Context) (vec.Box, error) {
	data, err := c.request(ctx, http.MethodGet, "/buildarea", nil, nil)
	if err != nil {
		return vec.Box{}, err
	}

	var raw buildAreaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return vec.Box{}, ErrBuildAreaNotSet
	}

	return vec.BoxBetween(
		vec.Vec3{X: raw.XFrom, Y: raw.YFrom, Z: raw.ZFrom},
		vec.Vec3{X: raw.XTo, Y: raw.YTo, Z: raw.ZTo},
	), nil
}

// GetHeightmap возвращает карту высот указанного типа для региона.
// Результат индексируется как heights[(x-rect.Offset.X)*rect.Size.Y + (z-rect.Offset.Y)].
func (c *Client) GetHeightmap(ctx context.Context, rect vec.Rect, kind string) ([]int32, error) {
	if kind == "" {
		kind = "WORLD_SURFACE"
	}
	q := c.baseQuery()
	q.Set("type", kind)
	q.Set("x", strconv.Itoa(rect.Offset.X))
	q.Set("z", strconv.Itoa(rect.Offset.Y))
	q.Set("dx", strconv.Itoa(rect.Size.X))
	q.Set("dz", strconv.Itoa(rect.Size.Y))

	data, err := c.request(ctx, http.MethodGet, "/heightmap", q, nil)
	if err != nil {
		return nil, err
	}

	var rows [][]int32
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("gdmc: некорректный ответ /heightmap: %w", err)
	}

	heights := make([]int32, 0, rect.Area())
	for _, row := range rows {
		heights = append(heights, row...)
	}
	if len(heights) != rect.Area() {
		return nil, fmt.Errorf("gdmc: размер карты высот %d не совпадает с площадью региона %d", len(heights), rect.Area())
	}
	return heights, nil
}

// Version возвращает версию Minecraft на сервере.
func (c *Client) Version(ctx context.Context) (string, error) {
	data, err := c.request(ctx, http.MethodGet, "/version", nil, nil)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(data)), nil
}

// CheckConnection проверяет доступность интерфейса без повторов.
func (c *Client) CheckConnection(ctx context.Context) error {
	probe := &Client{
		host:         c.host,
		dimension:    c.dimension,
		retries:      0,
		maxBatchSize: c.maxBatchSize,
		http:         c.http,
		tracer:       c.tracer,
		log:          c.log,
	}
	_, err := probe.Version(ctx)
	return err
}
