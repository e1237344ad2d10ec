package mapping

// Option modifies a Config copy.
type Option func(*Config)

// With returns a copy of c with opts applied in order.
func (c Config) With(opts ...Option) Config {
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

func WithMode(m Mode) Option { return func(c *Config) { c.Mode = m } }
func WithLatColumn(col string) Option { return func(c *Config) { c.LatColumn = col } }
func WithLonColumn(col string) Option { return func(c *Config) { c.LonColumn = col } }
func WithSizeColumn(col string) Option { return func(c *Config) { c.SizeColumn = col } }
func WithValueColumn(col string) Option { return func(c *Config) { c.ValueColumn = col } }
func WithKeyColumn(col string) Option { return func(c *Config) { c.KeyColumn = col } }
func WithKeyProperty(prop string) Option { return func(c *Config) { c.KeyProperty = prop } }
func WithPointColor(hex string) Option { return func(c *Config) { c.PointColor = hex } }
func WithRegionFill(hex string) Option { return func(c *Config) { c.RegionFill = hex } }
func WithBorderColor(hex string) Option { return func(c *Config) { c.BorderColor = hex } }
func WithPointRegionFill(hex string) Option { return func(c *Config) { c.PointRegionFill = hex } }
func WithPageBackground(hex string) Option { return func(c *Config) { c.PageBackground = hex } }
func WithScheme(name string) Option { return func(c *Config) { c.Scheme = name } }
func WithStrokeWidth(w float64) Option { return func(c *Config) { c.StrokeWidth = w } }
func WithSizeMultiplier(m float64) Option { return func(c *Config) { c.SizeMultiplier = m } }
func WithFillRegionsWithPoints(on bool) Option { return func(c *Config) { c.FillRegionsWithPoints = on } }

func WithMatchBorderToBackground(on bool) Option {
	return func(c *Config) { c.MatchBorderToBackground = on }
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Mode                    *Mode    `json:"mode,omitempty"`
	LatColumn               *string  `json:"lat_column,omitempty"`
	LonColumn               *string  `json:"lon_column,omitempty"`
	SizeColumn              *string  `json:"size_column,omitempty"`
	ValueColumn             *string  `json:"value_column,omitempty"`
	KeyColumn               *string  `json:"key_column,omitempty"`
	KeyProperty             *string  `json:"key_property,omitempty"`
	PointColor              *string  `json:"point_color,omitempty"`
	RegionFill              *string  `json:"region_fill,omitempty"`
	BorderColor             *string  `json:"border_color,omitempty"`
	PointRegionFill         *string  `json:"point_region_fill,omitempty"`
	PageBackground          *string  `json:"page_background,omitempty"`
	Scheme                  *string  `json:"scheme,omitempty"`
	StrokeWidth             *float64 `json:"stroke_width,omitempty"`
	SizeMultiplier          *float64 `json:"size_multiplier,omitempty"`
	FillRegionsWithPoints   *bool    `json:"fill_regions_with_points,omitempty"`
	MatchBorderToBackground *bool    `json:"match_border_to_background,omitempty"`
}

// Options converts the set fields of p into Options.
func (p Patch) Options() []Option {
	var opts []Option
	if p.Mode != nil {
		opts = append(opts, WithMode(*p.Mode))
	}
	if p.LatColumn != nil {
		opts = append(opts, WithLatColumn(*p.LatColumn))
	}
	if p.LonColumn != nil {
		opts = append(opts, WithLonColumn(*p.LonColumn))
	}
	if p.SizeColumn != nil {
		opts = append(opts, WithSizeColumn(*p.SizeColumn))
	}
	if p.ValueColumn != nil {
		opts = append(opts, WithValueColumn(*p.ValueColumn))
	}
	if p.KeyColumn != nil {
		opts = append(opts, WithKeyColumn(*p.KeyColumn))
	}
	if p.KeyProperty != nil {
		opts = append(opts, WithKeyProperty(*p.KeyProperty))
	}
	if p.PointColor != nil {
		opts = append(opts, WithPointColor(*p.PointColor))
	}
	if p.RegionFill != nil {
		opts = append(opts, WithRegionFill(*p.RegionFill))
	}
	if p.BorderColor != nil {
		opts = append(opts, WithBorderColor(*p.BorderColor))
	}
	if p.PointRegionFill != nil {
		opts = append(opts, WithPointRegionFill(*p.PointRegionFill))
	}
	if p.PageBackground != nil {
		opts = append(opts, WithPageBackground(*p.PageBackground))
	}
	if p.Scheme != nil {
		opts = append(opts, WithScheme(*p.Scheme))
	}
	if p.StrokeWidth != nil {
		opts = append(opts, WithStrokeWidth(*p.StrokeWidth))
	}
	if p.SizeMultiplier != nil {
		opts = append(opts, WithSizeMultiplier(*p.SizeMultiplier))
	}
	if p.FillRegionsWithPoints != nil {
		opts = append(opts, WithFillRegionsWithPoints(*p.FillRegionsWithPoints))
	}
	if p.MatchBorderToBackground != nil {
		opts = append(opts, WithMatchBorderToBackground(*p.MatchBorderToBackground))
	}
	return opts
}

// Apply returns a copy of c with the patch applied.
func (c Config) Apply(p Patch) Config {
	return c.With(p.Options()...)
}
