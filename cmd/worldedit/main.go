package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/config"
	"github.com/annel0/gdmc-client/editor"
	"github.com/annel0/gdmc-client/gdmc"
	"github.com/annel0/gdmc-client/geometry"
	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/internal/observability"
	"github.com/annel0/gdmc-client/vec"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (или ENV GDMC_CONFIG)")
		host       = flag.String("host", "", "Адрес GDMC сервера (приоритет над конфигом)")
		command    = flag.String("cmd", "version", "Команда: version, buildarea, get, fill, outline, heightmap, stats")
		from       = flag.String("from", "0,0,0", "Начальный угол региона x,y,z")
		to         = flag.String("to", "0,0,0", "Конечный угол региона x,y,z")
		blockID    = flag.String("block", "minecraft:stone", "ID блока для fill/outline")
		hollow     = flag.Bool("hollow", false, "Полая заливка (fill)")
		heightmap  = flag.String("heightmap", "WORLD_SURFACE", "Тип карты высот")
	)
	flag.Parse()

	if err := logging.InitLogger(); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseLogger()
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if *host != "" {
		cfg.Client.Host = *host
	}

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Warn("Телеметрия недоступна: %v", err)
		} else {
			defer shutdown(ctx)
		}
	}

	client := gdmc.NewClient(gdmc.ClientConfig{
		Host:         cfg.Client.GetHost(),
		Dimension:    cfg.Client.GetDimension(),
		Retries:      cfg.Client.GetRetries(),
		Timeout:      cfg.Client.GetTimeout(),
		MaxBatchSize: cfg.Client.GetMaxBatchSize(),
	})

	switch *command {
	case "version":
		if err := showVersion(ctx, client); err != nil {
			log.Fatalf("❌ Version failed: %v", err)
		}

	case "buildarea":
		if err := showBuildArea(ctx, client); err != nil {
			log.Fatalf("❌ Buildarea failed: %v", err)
		}

	case "get":
		pos, err := parseVec3(*from)
		if err != nil {
			log.Fatalf("❌ Неверная позиция: %v", err)
		}
		if err := showBlock(ctx, client, pos); err != nil {
			log.Fatalf("❌ Get failed: %v", err)
		}

	case "fill":
		if err := fillRegion(ctx, cfg, client, *from, *to, *blockID, *hollow); err != nil {
			log.Fatalf("❌ Fill failed: %v", err)
		}

	case "outline":
		if err := outlineRegion(ctx, cfg, client, *from, *to, *blockID); err != nil {
			log.Fatalf("❌ Outline failed: %v", err)
		}

	case "heightmap":
		if err := showHeightmap(ctx, client, *from, *to, *heightmap); err != nil {
			log.Fatalf("❌ Heightmap failed: %v", err)
		}

	case "stats":
		if err := showStats(); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Неизвестная команда: %s\n", *command)
		fmt.Println("Доступные команды: version, buildarea, get, fill, outline, heightmap, stats")
		os.Exit(1)
	}
}

// showVersion выводит версию Minecraft на сервере.
func showVersion(ctx context.Context, client *gdmc.Client) error {
	version, err := client.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("🎮 Сервер: %s\n   Minecraft: %s\n", client.Host(), version)
	return nil
}

// showBuildArea выводит область застройки, заданную на сервере.
func showBuildArea(ctx context.Context, client *gdmc.Client) error {
	area, err := client.GetBuildArea(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("📐 Область застройки: %s — %s (размер %s)\n",
		area.Offset, area.End().Sub(vec.Vec3{X: 1, Y: 1, Z: 1}), area.Size)
	return nil
}

// showBlock выводит блок в указанной позиции.
func showBlock(ctx context.Context, client *gdmc.Client, pos vec.Vec3) error {
	placed, err := client.GetBlocks(ctx, pos, nil)
	if err != nil {
		return err
	}
	for _, p := range placed {
		fmt.Printf("%s: %s\n", p.Pos, p.Block)
	}
	return nil
}

// fillRegion заливает регион через буферизованную сессию.
func fillRegion(ctx context.Context, cfg *config.Config, client *gdmc.Client, from, to, blockID string, hollow bool) error {
	corner1, corner2, err := parseCorners(from, to)
	if err != nil {
		return err
	}

	opts, err := editor.OptionsFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	opts.Backend = client
	opts.Buffering = true

	e, err := editor.NewEditor(opts)
	if err != nil {
		return err
	}

	box := vec.BoxBetween(corner1, corner2)
	start := time.Now()
	palette := block.Palette{block.New(blockID)}

	if err := geometry.PlaceBox(ctx, e, box, palette, hollow); err != nil {
		return err
	}
	if err := e.Close(ctx); err != nil {
		return err
	}

	fmt.Printf("✅ Заполнен регион %s блоком %s за %v\n", box, blockID, time.Since(start).Round(time.Millisecond))
	return nil
}

// outlineRegion обводит периметр региона на высоте начального угла.
func outlineRegion(ctx context.Context, cfg *config.Config, client *gdmc.Client, from, to, blockID string) error {
	corner1, corner2, err := parseCorners(from, to)
	if err != nil {
		return err
	}

	opts, err := editor.OptionsFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	opts.Backend = client
	opts.Buffering = true

	e, err := editor.NewEditor(opts)
	if err != nil {
		return err
	}

	rect := vec.RectBetween(corner1.ToVec2(), corner2.ToVec2())
	palette := block.Palette{block.New(blockID)}
	if err := geometry.PlaceRectOutline(ctx, e, rect, corner1.Y, palette); err != nil {
		return err
	}
	if err := e.Close(ctx); err != nil {
		return err
	}

	fmt.Printf("✅ Обведён контур %s на высоте %d\n", rect, corner1.Y)
	return nil
}

// showHeightmap выводит карту высот региона.
func showHeightmap(ctx context.Context, client *gdmc.Client, from, to, kind string) error {
	corner1, corner2, err := parseCorners(from, to)
	if err != nil {
		return err
	}

	rect := vec.RectBetween(corner1.ToVec2(), corner2.ToVec2())
	heights, err := client.GetHeightmap(ctx, rect, kind)
	if err != nil {
		return err
	}

	fmt.Printf("🗺  %s для %s:\n", kind, rect)
	for x := 0; x < rect.Size.X; x++ {
		row := make([]string, rect.Size.Y)
		for z := 0; z < rect.Size.Y; z++ {
			row[z] = strconv.Itoa(int(heights[x*rect.Size.Y+z]))
		}
		fmt.Println("  " + strings.Join(row, " "))
	}
	return nil
}

// showStats выводит статистику ресурсов локальной машины.
func showStats() error {
	fmt.Println("📊 Ресурсы клиента")

	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("memory stats: %w", err)
	}
	fmt.Printf("  Память: %.1f%% занято (%.1f ГБ из %.1f ГБ)\n",
		vm.UsedPercent, float64(vm.Used)/1e9, float64(vm.Total)/1e9)

	percents, err := cpu.Percent(time.Second, false)
	if err != nil {
		return fmt.Errorf("cpu stats: %w", err)
	}
	if len(percents) > 0 {
		fmt.Printf("  CPU: %.1f%% (%d ядер)\n", percents[0], runtime.NumCPU())
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	fmt.Printf("  Горутины: %d, heap: %.1f МБ\n", runtime.NumGoroutine(), float64(ms.HeapAlloc)/1e6)
	return nil
}

// parseVec3 парсит "x,y,z" в вектор.
func parseVec3(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидается x,y,z, получено %q", s)
	}
	var coords [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("компонента %q: %w", part, err)
		}
		coords[i] = n
	}
	return vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func parseCorners(from, to string) (vec.Vec3, vec.Vec3, error) {
	corner1, err := parseVec3(from)
	if err != nil {
		return vec.Vec3{}, vec.Vec3{}, err
	}
	corner2, err := parseVec3(to)
	if err != nil {
		return vec.Vec3{}, vec.Vec3{}, err
	}
	return corner1, corner2, nil
}
