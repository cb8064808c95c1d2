package lua

var sugarRc = `
_builtins = {}
for name in pairs(_G) do _builtins[name] = true end

getmetatable("").__mod = func(a, b)
    if type(b) == 'table' then
        return string.format(a, unpack(b))
    end
    return string.format(a, b)
end

func range(a, b)
    local i, stop = 0, a
    if b != nil then i, stop = a, b end
    i = i - 1
    return func()
        i = i + 1
        if i < stop then return i end
    end
end

-- words in memory strings are big-endian
func be16(s, i)
    i = i or 1
    local a, b = string.byte(s, i, i + 1)
    return a * 256 + b
end

func be32(s, i)
    i = i or 1
    return be16(s, i) * 65536 + be16(s, i + 2)
end

func sx8(v) if v >= 0x80 then return v - 0x100 end return v end
func sx16(v) if v >= 0x8000 then return v - 0x10000 end return v end
`
