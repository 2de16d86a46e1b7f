package editor

import (
	"context"
	"fmt"

	"github.com/annel0/gdmc-client/cache"
	"github.com/annel0/gdmc-client/config"
	"github.com/annel0/gdmc-client/gdmc"
	"github.com/annel0/gdmc-client/vec"
)

// Backend — внешние примитивы чтения/записи, от которых зависит сессия.
// Реализуется gdmc.Client; тесты подставляют фальшивки.
type Backend interface {
	GetBlocks(ctx context.Context, pos vec.Vec3, size *vec.Vec3) ([]gdmc.PlacedBlock, error)
	PlaceBlocks(ctx context.Context, batch []gdmc.Placement, opts gdmc.PlaceOptions) ([]gdmc.PlaceResult, error)
	RunCommand(ctx context.Context, command string, position *vec.Vec3) ([]gdmc.CommandResult, error)
	GetBuildArea(ctx context.Context) (vec.Box, error)
	GetHeightmap(ctx context.Context, rect vec.Rect, kind string) ([]int32, error)
	MaxBatchSize() int
}

// Значения по умолчанию для параметров сессии.
const (
	DefaultBufferLimit = 1024
	DefaultCacheLimit  = 8192
)

// Options конфигурирует сессию.
type Options struct {
	// Backend — внешние примитивы. Если nil, клиент создаётся из Host.
	Backend Backend

	// Host, Dimension и Retries передаются gdmc.NewClient при Backend == nil.
	Host      string `yaml:"host" env:"GDMC_HOST"`
	Dimension string `yaml:"dimension" env:"GDMC_DIMENSION"`
	Retries   int    `yaml:"retries" env:"GDMC_RETRIES"`

	// Buffering включает отложенную запись. BufferLimit — ёмкость
	// буфера до автоматического сброса (0 — значение по умолчанию,
	// отрицательное значение недопустимо).
	Buffering   bool `yaml:"buffering" env:"GDMC_BUFFERING"`
	BufferLimit int  `yaml:"buffer_limit" env:"GDMC_BUFFER_LIMIT"`

	// Caching включает кеш чтения; выключение кеша — Caching=false,
	// а не нулевая ёмкость. CacheLimit — ёмкость LRU-кеша: 0 означает
	// значение по умолчанию (DefaultCacheLimit), отрицательное значение
	// недопустимо. Прямой вызов cache.NewLRUCache(0) создаёт отключённый
	// кеш, но через Options этот путь недостижим.
	// Cache задаёт внешний бекенд кеша (Redis); при nil строится LRU.
	Caching    bool `yaml:"caching" env:"GDMC_CACHING"`
	CacheLimit int  `yaml:"cache_limit" env:"GDMC_CACHE_LIMIT"`
	Cache      cache.BlockCache

	// FlushWorkers — число воркеров параллельного сброса. Значение
	// больше 1 отключает гарантию порядка под-батчей и требует явного
	// AcknowledgeUnorderedFlush. Небезопасно при конкурентных
	// изменениях тех же позиций извне.
	FlushWorkers              int  `yaml:"flush_workers" env:"GDMC_FLUSH_WORKERS"`
	AcknowledgeUnorderedFlush bool `yaml:"acknowledge_unordered_flush" env:"GDMC_ACK_UNORDERED_FLUSH"`

	// Place — флаги размещения, передаваемые серверу с каждым батчем.
	Place gdmc.PlaceOptions
}

// OptionsFromConfig собирает опции сессии из файла конфигурации:
// HTTP-клиент из секции client, буферизация/кеш из секции editor и,
// если в секции cache настроен Redis, распределённый кеш блоков
// (см. cache.NewFromConfig). nil cfg даёт опции по умолчанию.
func OptionsFromConfig(ctx context.Context, cfg *config.Config) (Options, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	o := Options{
		Backend: gdmc.NewClient(gdmc.ClientConfig{
			Host:         cfg.Client.GetHost(),
			Dimension:    cfg.Client.GetDimension(),
			Retries:      cfg.Client.GetRetries(),
			Timeout:      cfg.Client.GetTimeout(),
			MaxBatchSize: cfg.Client.GetMaxBatchSize(),
		}),
		Buffering:                 cfg.Editor.Buffering,
		BufferLimit:               cfg.Editor.GetBufferLimit(),
		Caching:                   cfg.Editor.Caching,
		CacheLimit:                cfg.Editor.GetCacheLimit(),
		FlushWorkers:              cfg.Editor.GetFlushWorkers(),
		AcknowledgeUnorderedFlush: cfg.Editor.AcknowledgeUnorderedFlush,
	}

	bc, err := cache.NewFromConfig(ctx, &cfg.Cache)
	if err != nil {
		return Options{}, err
	}
	if bc != nil {
		o.Cache = bc
		o.Caching = true
	}
	return o, nil
}

// withDefaults валидирует опции и заполняет значения по умолчанию.
func (o Options) withDefaults() (Options, error) {
	if o.BufferLimit < 0 {
		return o, fmt.Errorf("%w: ёмкость буфера %d", ErrInvalidArgument, o.BufferLimit)
	}
	if o.BufferLimit == 0 {
		o.BufferLimit = DefaultBufferLimit
	}
	if o.CacheLimit < 0 {
		return o, fmt.Errorf("%w: ёмкость кеша %d", ErrInvalidArgument, o.CacheLimit)
	}
	if o.CacheLimit == 0 {
		o.CacheLimit = DefaultCacheLimit
	}
	if o.FlushWorkers < 0 {
		return o, fmt.Errorf("%w: число воркеров %d", ErrInvalidArgument, o.FlushWorkers)
	}
	if o.FlushWorkers == 0 {
		o.FlushWorkers = 1
	}
	if o.FlushWorkers > 1 && !o.AcknowledgeUnorderedFlush {
		return o, fmt.Errorf("%w: параллельный сброс требует явного AcknowledgeUnorderedFlush",
			ErrInvalidArgument)
	}
	if o.Place == (gdmc.PlaceOptions{}) {
		o.Place = gdmc.DefaultPlaceOptions()
	}
	if o.Backend == nil {
		o.Backend = gdmc.NewClient(gdmc.ClientConfig{Host: o.Host, Dimension: o.Dimension, Retries: o.Retries})
	}
	return o, nil
}
